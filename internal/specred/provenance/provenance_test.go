package provenance

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/pipedb"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/timeutil"
)

func setupDB(t *testing.T) *pipedb.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.db")
	db, err := pipedb.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newProduct(t *testing.T) *fitsio.File {
	t.Helper()
	f, err := fitsio.Open(fsutil.NewMemoryFileSystem(), "product.fits")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Primary = &fitsio.Image{Naxis: []int{10, 10}, Data: make([]float64, 100)}
	return f
}

func TestNewRunIDRecordsStart(t *testing.T) {
	db := setupDB(t)
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	runID, err := NewRunID(db, "vmmoscalib", clock)
	if err != nil {
		t.Fatalf("NewRunID: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run ID")
	}
	if err := Finish(db, runID, clock, 0, "product.fits"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

// TestAssembleTimeOrdersRawFrames matches the seed scenario: two RAW
// frames of MJD-OBS 59000.1 and 59000.0, entered out of time order,
// must come out with RAW1 referencing the earlier frame.
func TestAssembleTimeOrdersRawFrames(t *testing.T) {
	product := newProduct(t)
	in := Input{
		RecipeName: "vmmosscience",
		ProCatg:    "MOS_SCIENCE_REDUCED",
		Raw: []FrameRef{
			{Path: "raw_late.fits", Category: "SCIENCE", Technique: "MOS", MJDObs: 59000.1,
				Header: []fitsio.Card{{Key: "INSTRUME", Value: "VIMOS"}}},
			{Path: "raw_early.fits", Category: "SCIENCE", Technique: "MOS", MJDObs: 59000.0,
				Header: []fitsio.Card{{Key: "INSTRUME", Value: "VIMOS"}}},
		},
		RunID:  "run-1",
		DRSID:  "vmmosscience",
		PipeID: PipeID(),
	}
	if err := Assemble(product, "product.fits", in); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	raw1, ok := getCard(product.Primary.Header, "PRO REC1 RAW1 NAME")
	if !ok || raw1.Value != "raw_early.fits" {
		t.Fatalf("PRO REC1 RAW1 NAME = %+v, want raw_early.fits", raw1)
	}
	raw2, ok := getCard(product.Primary.Header, "PRO REC1 RAW2 NAME")
	if !ok || raw2.Value != "raw_late.fits" {
		t.Fatalf("PRO REC1 RAW2 NAME = %+v, want raw_late.fits", raw2)
	}
	ncom, ok := getCard(product.Primary.Header, "PRO DATANCOM")
	if !ok || ncom.Value != int64(2) {
		t.Fatalf("PRO DATANCOM = %+v, want 2", ncom)
	}
}

func TestAssembleMirrorsMandatoryAndStripsExcluded(t *testing.T) {
	product := newProduct(t)
	product.Primary.Header = []fitsio.Card{{Key: "ARCFILE", Value: "stale.fits"}}
	ref := FrameRef{
		Path: "raw.fits", Category: "SCIENCE", Technique: "MOS", MJDObs: 59000.0,
		Header: []fitsio.Card{
			{Key: "INSTRUME", Value: "VIMOS"},
			{Key: "ESO INS FILT1 NAME", Value: "free"},
			{Key: "ESO DPR CATG", Value: "SCIENCE"},
			{Key: "ARCFILE", Value: "raw.fits"},
			{Key: "ESO DET OUT1 OVSCX", Value: int64(50)},
		},
	}
	in := Input{
		RecipeName: "vmmosscience",
		ProCatg:    "MOS_SCIENCE_REDUCED",
		Raw:        []FrameRef{ref},
		RunID:      "run-1",
		DRSID:      "vmmosscience",
		PipeID:     PipeID(),
	}
	if err := Assemble(product, "product.fits", in); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if c, ok := getCard(product.Primary.Header, "INSTRUME"); !ok || c.Value != "VIMOS" {
		t.Fatalf("expected mandatory INSTRUME mirrored, got %+v ok=%v", c, ok)
	}
	if c, ok := getCard(product.Primary.Header, "ESO INS FILT1 NAME"); !ok || c.Value != "free" {
		t.Fatalf("expected ESO * card mirrored, got %+v ok=%v", c, ok)
	}
	if _, ok := getCard(product.Primary.Header, "ESO DPR CATG"); ok {
		t.Fatal("ESO DPR CATG should have been stripped from the product header")
	}
	if _, ok := getCard(product.Primary.Header, "ESO DET OUT1 OVSCX"); ok {
		t.Fatal("ESO DET OUT1 OVSCX should have been stripped")
	}
	if c, ok := getCard(product.Primary.Header, "ARCFILE"); ok {
		t.Fatalf("ARCFILE should have been stripped, got %+v", c)
	}
	if c, ok := getCard(product.Primary.Header, "PRO SCIENCE"); !ok || c.Value != true {
		t.Fatalf("PRO SCIENCE = %+v, want true", c)
	}
	if _, ok := getCard(product.Primary.Header, "DATAMD5"); !ok {
		t.Fatal("expected DATAMD5 to be stamped")
	}
}

func TestAssembleRejectsMissingRunID(t *testing.T) {
	product := newProduct(t)
	in := Input{
		Raw: []FrameRef{{Path: "raw.fits", MJDObs: 1, Header: []fitsio.Card{{Key: "INSTRUME", Value: "VIMOS"}}}},
	}
	if err := Assemble(product, "product.fits", in); err == nil {
		t.Fatal("expected error for missing run ID")
	}
}

func TestAssembleRejectsNoReferenceFrame(t *testing.T) {
	product := newProduct(t)
	in := Input{RunID: "run-1"}
	if err := Assemble(product, "product.fits", in); err == nil {
		t.Fatal("expected error when no RAW or CALIB frame is given")
	}
}

func TestAssembleWritesCalibAndParams(t *testing.T) {
	product := newProduct(t)
	in := Input{
		ProCatg: "MOS_SCIENCE_REDUCED",
		Raw: []FrameRef{
			{Path: "raw.fits", Category: "SCIENCE", MJDObs: 1, Header: []fitsio.Card{{Key: "INSTRUME", Value: "VIMOS"}}},
		},
		Calib: []FrameRef{
			{Path: "bias.fits", Category: "MASTER_BIAS", DataMD5: "abc123", MJDObs: 0},
		},
		Params: map[string]string{"computeExtinction": "true", "fitOrder": "1"},
		RunID:  "run-1",
		DRSID:  "vmmosscience",
		PipeID: PipeID(),
	}
	if err := Assemble(product, "product.fits", in); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if c, ok := getCard(product.Primary.Header, "PRO REC1 CAL1 NAME"); !ok || c.Value != "bias.fits" {
		t.Fatalf("PRO REC1 CAL1 NAME = %+v", c)
	}
	if c, ok := getCard(product.Primary.Header, "PRO REC1 CAL1 DATAMD5"); !ok || c.Value != "abc123" {
		t.Fatalf("PRO REC1 CAL1 DATAMD5 = %+v", c)
	}
	// params are written in sorted-name order for determinism.
	if c, ok := getCard(product.Primary.Header, "PRO REC1 PARAM1 NAME"); !ok || c.Value != "computeExtinction" {
		t.Fatalf("PRO REC1 PARAM1 NAME = %+v", c)
	}
	if c, ok := getCard(product.Primary.Header, "PRO REC1 PARAM2 NAME"); !ok || c.Value != "fitOrder" {
		t.Fatalf("PRO REC1 PARAM2 NAME = %+v", c)
	}
}
