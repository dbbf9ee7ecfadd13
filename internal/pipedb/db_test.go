package pipedb

import (
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSetGetParam(t *testing.T) {
	db := setupTestDB(t)

	if _, ok, err := db.GetParam("vmifucalib", "computeExtinction"); err != nil {
		t.Fatalf("GetParam failed: %v", err)
	} else if ok {
		t.Fatalf("expected missing param to be absent")
	}

	if err := db.SetParam("vmifucalib", "computeExtinction", "true"); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	value, ok, err := db.GetParam("vmifucalib", "computeExtinction")
	if err != nil {
		t.Fatalf("GetParam failed: %v", err)
	}
	if !ok || value != "true" {
		t.Fatalf("GetParam = (%q, %v), want (true, true)", value, ok)
	}

	// overwrite
	if err := db.SetParam("vmifucalib", "computeExtinction", "false"); err != nil {
		t.Fatalf("SetParam overwrite failed: %v", err)
	}
	value, _, _ = db.GetParam("vmifucalib", "computeExtinction")
	if value != "false" {
		t.Fatalf("GetParam after overwrite = %q, want false", value)
	}
}

func TestAllParams(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SetParam("vmifucalib", "fitOrd", "3"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetParam("vmifucalib", "computeColorTerm", "false"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetParam("vmmosfringes", "pixels", "10"); err != nil {
		t.Fatal(err)
	}

	params, err := db.AllParams("vmifucalib")
	if err != nil {
		t.Fatalf("AllParams failed: %v", err)
	}
	if len(params) != 2 || params["fitOrd"] != "3" || params["computeColorTerm"] != "false" {
		t.Fatalf("AllParams = %v, want fitOrd=3 computeColorTerm=false", params)
	}
}

func TestAliasRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SetAlias("BiasLevel", "ESO DET OUT1 BIAS"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAlias("MjdObs", "MJD-OBS"); err != nil {
		t.Fatal(err)
	}
	aliases, err := db.AllAliases()
	if err != nil {
		t.Fatalf("AllAliases failed: %v", err)
	}
	if aliases["BiasLevel"] != "ESO DET OUT1 BIAS" || aliases["MjdObs"] != "MJD-OBS" {
		t.Fatalf("AllAliases = %v", aliases)
	}
}

func TestRecordRunLifecycle(t *testing.T) {
	db := setupTestDB(t)
	if err := db.RecordRunStart("run-1", "vmifucalib", 1000); err != nil {
		t.Fatalf("RecordRunStart failed: %v", err)
	}
	if err := db.RecordRunFinish("run-1", 1042, 0, "product.fits"); err != nil {
		t.Fatalf("RecordRunFinish failed: %v", err)
	}

	var finished int64
	var status int
	var product string
	row := db.QueryRow(`SELECT finished_unix, exit_status, product_file FROM recipe_run WHERE run_id = ?`, "run-1")
	if err := row.Scan(&finished, &status, &product); err != nil {
		t.Fatalf("scan recipe_run: %v", err)
	}
	if finished != 1042 || status != 0 || product != "product.fits" {
		t.Fatalf("recipe_run row = (%d, %d, %q)", finished, status, product)
	}
}
