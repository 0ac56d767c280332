package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-publisher/internal/metadata"
	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// prepareSession ingests images and generates metadata for every
// (image, surface) pair.
func prepareSession(t *testing.T, names []string, surfaces []surface.Surface) (*session.Session, []string) {
	t.Helper()
	sess := session.New()
	var ids []string
	for _, name := range names {
		img, err := sess.AddImage(name, testJPEG(t, 200, 150))
		if err != nil {
			t.Fatalf("AddImage(%s): %v", name, err)
		}
		ids = append(ids, img.ID)
		for _, surf := range surfaces {
			md := metadata.Generate(name, img.PhotoID, surf, "Studio", "main_room_wide", "SoHo, NYC")
			sess.SetMetadata(img.ID, surf, md)
		}
	}
	return sess, ids
}

func readArchive(t *testing.T, archive []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		files[f.Name] = data
	}
	return files
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}
	return rows
}

func TestRun_FullExport(t *testing.T) {
	surfaces := []surface.Surface{surface.Web, surface.Instagram, surface.Print}
	sess, ids := prepareSession(t, []string{"IMG_4521.jpg", "IMG_4522.jpg"}, surfaces)

	result, err := Run(context.Background(), sess, ids, surfaces, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Summary.ExpectedFiles != 6 || result.Summary.ArchivedFiles != 6 || result.Summary.RowCount != 6 {
		t.Errorf("summary counts disagree: %+v", result.Summary)
	}

	files := readArchive(t, result.Archive)

	// Both manifests at the root plus one artifact per pair.
	if _, ok := files[LongManifestName]; !ok {
		t.Errorf("archive missing %s", LongManifestName)
	}
	if _, ok := files[WideManifestName]; !ok {
		t.Errorf("archive missing %s", WideManifestName)
	}
	artifactCount := 0
	for name := range files {
		if strings.Contains(name, "/") {
			artifactCount++
		}
	}
	if artifactCount != 6 {
		t.Errorf("expected 6 artifacts in archive, got %d", artifactCount)
	}

	// Artifacts live in surface-named folders under their new filenames.
	for name := range files {
		if !strings.Contains(name, "/") {
			continue
		}
		folder := strings.SplitN(name, "/", 2)[0]
		if _, err := surface.Parse(folder); err != nil {
			t.Errorf("artifact %s is not under a surface folder", name)
		}
		if !strings.HasSuffix(name, ".jpg") {
			t.Errorf("artifact %s does not use the .jpg extension", name)
		}
	}
}

func TestRun_LongManifestContents(t *testing.T) {
	surfaces := []surface.Surface{surface.Web, surface.Pinterest}
	sess, ids := prepareSession(t, []string{"IMG_4521.jpg"}, surfaces)

	result, err := Run(context.Background(), sess, ids, surfaces, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	files := readArchive(t, result.Archive)
	rows := parseCSV(t, files[LongManifestName])

	if len(rows) != 3 { // header + 2 pairs
		t.Fatalf("expected 3 CSV rows, got %d", len(rows))
	}

	expectedHeader := []string{
		"original_filename", "platform", "new_filename", "alt_text", "caption",
		"category", "location", "keyword_master", "descriptor", "slug_base",
	}
	for i, col := range expectedHeader {
		if rows[0][i] != col {
			t.Errorf("header column %d: expected %q, got %q", i, col, rows[0][i])
		}
	}

	row := rows[1]
	if row[0] != "IMG_4521.jpg" {
		t.Errorf("expected original filename, got %q", row[0])
	}
	if row[1] != "web" {
		t.Errorf("expected platform 'web', got %q", row[1])
	}
	if !strings.HasSuffix(row[2], "__web.jpg") {
		t.Errorf("unexpected new filename %q", row[2])
	}
	if row[6] != "SoHo, NYC" {
		t.Errorf("expected raw location, got %q", row[6])
	}
	// One physical line per row: no literal newlines survive escaping.
	if strings.ContainsAny(row[4], "\n\r") {
		t.Errorf("caption contains a literal line break: %q", row[4])
	}
}

func TestRun_WideManifestContents(t *testing.T) {
	surfaces := []surface.Surface{surface.Web, surface.Instagram, surface.Pinterest}
	sess, ids := prepareSession(t, []string{"IMG_4521.jpg", "IMG_9999.jpg"}, surfaces)

	result, err := Run(context.Background(), sess, ids, surfaces, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	files := readArchive(t, result.Archive)
	rows := parseCSV(t, files[WideManifestName])

	if len(rows) != 3 { // header + 2 images
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	header := rows[0]
	for _, col := range []string{"photo_id", "filename_web", "filename_instagram", "filename_pinterest",
		"caption_instagram", "pinterest_title", "pinterest_description", "hashtags", "notes"} {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("wide header missing column %q", col)
		}
	}

	colIndex := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q not found", name)
		return -1
	}

	row := rows[1]
	if row[colIndex("photo_id")] != "img4521" {
		t.Errorf("expected photo_id 'img4521', got %q", row[colIndex("photo_id")])
	}
	if row[colIndex("neighborhood")] != "SoHo" || row[colIndex("city")] != "NYC" {
		t.Errorf("location split wrong: %q / %q", row[colIndex("neighborhood")], row[colIndex("city")])
	}
	if row[colIndex("pinterest_title")] == "" {
		t.Error("expected pinterest title in wide row")
	}
	if !strings.HasPrefix(row[colIndex("hashtags")], "#") {
		t.Errorf("expected hashtags column, got %q", row[colIndex("hashtags")])
	}
}

func TestRun_AbortOnMissingMetadata(t *testing.T) {
	// 3 images x 4 surfaces with exactly one missing pair: the run must
	// report that one pair and never reach packaging.
	surfaces := []surface.Surface{surface.Web, surface.Instagram, surface.GBP, surface.Print}
	sess := session.New()
	var ids []string
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		img, err := sess.AddImage(name, testJPEG(t, 100, 100))
		if err != nil {
			t.Fatalf("AddImage: %v", err)
		}
		ids = append(ids, img.ID)
		for j, surf := range surfaces {
			if i == 1 && j == 2 {
				continue // the gap: b.jpg / gbp
			}
			sess.SetMetadata(img.ID, surf, metadata.Generate(name, img.PhotoID, surf, "Studio", "cyc_wall", "SoHo, NYC"))
		}
	}

	var states []State
	result, err := Run(context.Background(), sess, ids, surfaces, Options{
		OnProgress: func(info ProgressInfo) { states = append(states, info.Stage) },
	})

	if result != nil {
		t.Fatal("expected no result on abort")
	}

	var missingErr *MissingMetadataError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected *MissingMetadataError, got %T: %v", err, err)
	}
	if len(missingErr.Pairs) != 1 {
		t.Fatalf("expected exactly 1 missing pair, got %d", len(missingErr.Pairs))
	}
	if missingErr.Pairs[0].OriginalFilename != "b.jpg" || missingErr.Pairs[0].Surface != "gbp" {
		t.Errorf("wrong missing pair reported: %+v", missingErr.Pairs[0])
	}

	for _, st := range states {
		if st == StatePackaging || st == StateFinalized {
			t.Errorf("run reached %s despite missing metadata", st)
		}
	}
}

func TestRun_SelfTestCatchesFailedArtifact(t *testing.T) {
	surfaces := []surface.Surface{surface.Web, surface.WhatsApp}
	sess := session.New()

	good, err := sess.AddImage("good.jpg", testJPEG(t, 300, 200))
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	// Truncated JPEG: the header still parses (so ingestion succeeds) but a
	// full decode fails during transcoding.
	broken := testJPEG(t, 300, 200)
	bad, err := sess.AddImage("bad.jpg", broken[:len(broken)/2])
	if err != nil {
		t.Fatalf("AddImage for truncated jpeg: %v", err)
	}

	ids := []string{good.ID, bad.ID}
	for _, id := range ids {
		img := sess.Image(id)
		for _, surf := range surfaces {
			sess.SetMetadata(id, surf, metadata.Generate(img.OriginalFilename, img.PhotoID, surf, "Studio", "cyc_wall", "SoHo, NYC"))
		}
	}

	var states []State
	result, err := Run(context.Background(), sess, ids, surfaces, Options{
		OnProgress: func(info ProgressInfo) { states = append(states, info.Stage) },
	})

	if result != nil {
		t.Fatal("expected no result when artifacts fail")
	}

	var mismatch *SelfTestMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *SelfTestMismatchError, got %T: %v", err, err)
	}
	if mismatch.Expected != 4 {
		t.Errorf("expected 4 expected files, got %d", mismatch.Expected)
	}
	if mismatch.Archived != 2 {
		t.Errorf("expected 2 archived files, got %d", mismatch.Archived)
	}
	if len(mismatch.Failed) != 2 {
		t.Errorf("expected 2 failed pairs, got %d", len(mismatch.Failed))
	}
	for _, p := range mismatch.Failed {
		if p.OriginalFilename != "bad.jpg" {
			t.Errorf("unexpected failed pair %+v", p)
		}
	}

	for _, st := range states {
		if st == StatePackaging || st == StateFinalized {
			t.Errorf("run reached %s despite failed artifacts", st)
		}
	}
}

func TestRun_DuplicateOriginalFilenames(t *testing.T) {
	// Two distinct images sharing a raw filename must still land on two
	// distinct archive paths; the photo id component disambiguates.
	surfaces := []surface.Surface{surface.Web}
	sess, ids := prepareSession(t, []string{"IMG_4521.jpg", "IMG_4521.jpg"}, surfaces)

	result, err := Run(context.Background(), sess, ids, surfaces, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Summary.ArchivedFiles != 2 {
		t.Errorf("expected 2 archived files, got %d", result.Summary.ArchivedFiles)
	}

	files := readArchive(t, result.Archive)
	var artifacts []string
	for name := range files {
		if strings.HasPrefix(name, "web/") {
			artifacts = append(artifacts, name)
		}
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 distinct web artifacts, got %d: %v", len(artifacts), artifacts)
	}
	if artifacts[0] == artifacts[1] {
		t.Errorf("artifact paths collide: %q", artifacts[0])
	}

	// The wide manifest keeps one row per image with distinct photo ids.
	rows := parseCSV(t, files[WideManifestName])
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 wide rows, got %d", len(rows))
	}
	if rows[1][0] == rows[2][0] {
		t.Errorf("wide rows share photo id %q", rows[1][0])
	}
}

func TestRun_Deterministic(t *testing.T) {
	surfaces := []surface.Surface{surface.Web, surface.Instagram}
	sess, ids := prepareSession(t, []string{"IMG_0001.jpg"}, surfaces)

	a, err := Run(context.Background(), sess, ids, surfaces, Options{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	b, err := Run(context.Background(), sess, ids, surfaces, Options{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !bytes.Equal(a.Archive, b.Archive) {
		t.Error("two identical runs produced different archives")
	}
}

func TestRun_Cancellation(t *testing.T) {
	surfaces := []surface.Surface{surface.Web}
	sess, ids := prepareSession(t, []string{"a.jpg"}, surfaces)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, sess, ids, surfaces, Options{})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if result != nil {
		t.Error("expected no result for cancelled run")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestRun_EmptySelections(t *testing.T) {
	sess, ids := prepareSession(t, []string{"a.jpg"}, []surface.Surface{surface.Web})

	if _, err := Run(context.Background(), sess, nil, []surface.Surface{surface.Web}, Options{}); err == nil {
		t.Error("expected error for empty image selection")
	}
	if _, err := Run(context.Background(), sess, ids, nil, Options{}); err == nil {
		t.Error("expected error for empty surface selection")
	}
}

func TestRun_UnknownImageID(t *testing.T) {
	sess, _ := prepareSession(t, []string{"a.jpg"}, []surface.Surface{surface.Web})

	_, err := Run(context.Background(), sess, []string{"nope"}, []surface.Surface{surface.Web}, Options{})
	if err == nil {
		t.Error("expected error for unknown image id")
	}
}

func TestRun_ProgressReachesDone(t *testing.T) {
	surfaces := []surface.Surface{surface.Web}
	sess, ids := prepareSession(t, []string{"a.jpg"}, surfaces)

	var last ProgressInfo
	prev := -1
	_, err := Run(context.Background(), sess, ids, surfaces, Options{
		OnProgress: func(info ProgressInfo) {
			if info.Percent < prev {
				t.Errorf("progress went backwards: %d after %d", info.Percent, prev)
			}
			prev = info.Percent
			last = info
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !last.Done || last.Stage != StateFinalized || last.Percent != 100 {
		t.Errorf("final progress event wrong: %+v", last)
	}
}
