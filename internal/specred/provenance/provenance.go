// Package provenance assembles the PRO.* header block every pipeline
// product carries describing how it was produced: which recipe run
// made it, which raw and calibration frames it was derived from, and
// under which recipe parameters (dfs_setup_product_header, §4.8).
//
// Products are self-describing; there is no external provenance store.
// The run identifier itself is recorded in the pipeline database
// (internal/pipedb) so it can outlive the in-memory recipe invocation.
package provenance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/eso-vlt/vimos-specred/internal/monitoring"
	"github.com/eso-vlt/vimos-specred/internal/pipedb"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/timeutil"
	"github.com/eso-vlt/vimos-specred/internal/version"
)

// proDataID is the DID string stamped into every product header as
// PRO DID, fixed by the pipeline-product data dictionary this engine
// targets.
const proDataID = "PRO-1.15"

// FrameRef describes one input frame contributing to a product's
// provenance block: its path, DPR category/technique, MJD-OBS, and own
// primary header, read once up front so Assemble never has to reopen
// the filesystem.
type FrameRef struct {
	Path      string
	Category  string // ESO DPR CATG, e.g. "SCIENCE", "STD", "BIAS"
	Technique string // ESO DPR TECH, e.g. "MOS", "IFU"
	MJDObs    float64
	DataMD5   string // this frame's own DATAMD5, for CALIB frames only
	Header    []fitsio.Card
}

// Input is everything Assemble needs beyond the product itself.
type Input struct {
	RecipeName string
	ProCatg    string
	ProTech    string // falls back to the reference frame's DPR.TECH if empty
	Raw        []FrameRef
	Calib      []FrameRef
	Params     map[string]string // recipe parameter name -> value, as dumped from the pipeline database
	RunID      string            // PRO REC1 ID, see NewRunID
	DRSID      string            // PRO REC1 DRS ID
	PipeID     string            // PRO REC1 PIPE ID, see PipeID
}

// mandatoryKeywords are copied verbatim from the reference input frame
// into the product header ahead of the ESO * mirror pass.
var mandatoryKeywords = []string{
	"INSTRUME", "TELESCOP", "OBJECT", "RA", "DEC", "EQUINOX",
	"MJD-OBS", "DATE-OBS", "EXPTIME", "ESO DPR CATG", "ESO DPR TECH", "ESO DPR TYPE",
}

// strippedExact are removed from the product header after mirroring,
// regardless of how they got there.
var strippedExact = []string{
	"ARCFILE", "ORIGFILE", "CHECKSUM",
	"ESO DET OUT1 OVSCX", "ESO DET OUT1 OVSCY",
	"ESO DET OUT1 PRSCX", "ESO DET OUT1 PRSCY",
}

// NewRunID generates a fresh recipe-run identifier, records its start
// in the pipeline database, and returns it for use as Input.RunID.
func NewRunID(db *pipedb.DB, recipe string, clock timeutil.Clock) (string, error) {
	runID := uuid.NewString()
	if err := db.RecordRunStart(runID, recipe, clock.Now().Unix()); err != nil {
		return "", kind.Wrap(kind.FileIO, err, "recording run start for %s", recipe)
	}
	return runID, nil
}

// Finish closes out a run previously opened by NewRunID.
func Finish(db *pipedb.DB, runID string, clock timeutil.Clock, exitStatus int, productFile string) error {
	if err := db.RecordRunFinish(runID, clock.Now().Unix(), exitStatus, productFile); err != nil {
		return kind.Wrap(kind.FileIO, err, "recording run finish for %s", runID)
	}
	return nil
}

// PipeID returns the pipeline/version string written as PRO REC1 PIPE ID.
func PipeID() string {
	return fmt.Sprintf("vimos-specred/%s", version.Version)
}

// Assemble implements dfs_setup_product_header: it selects the
// time-sorted reference input frame, mirrors its mandatory and ESO *
// cards into product's primary header (excluding ESO DPR *, ESO PRO *,
// ESO DRS *), strips the excluded keywords, and writes the full PRO.*
// provenance block plus DATAMD5/PIPEFILE. productFile is the filename
// stamped into PIPEFILE, not the path product was opened from.
func Assemble(product *fitsio.File, productFile string, in Input) error {
	if product == nil || product.Primary == nil {
		return kind.New(kind.NullInput, "product has no primary HDU")
	}
	if in.RunID == "" {
		return kind.New(kind.IllegalInput, "provenance requires a run ID (see NewRunID)")
	}

	raw := sortedByMJD(in.Raw)
	calib := sortedByMJD(in.Calib)
	ref, err := pickReference(raw, calib)
	if err != nil {
		return err
	}
	monitoring.Logf("[provenance] run=%s recipe=%s reference=%s mjd-obs=%.6f raw=%d calib=%d",
		in.RunID, in.RecipeName, ref.Path, ref.MJDObs, len(raw), len(calib))

	h := product.Primary.Header
	for _, key := range mandatoryKeywords {
		if c, ok := getCard(ref.Header, key); ok {
			h = putCard(h, c)
		}
	}
	for _, c := range ref.Header {
		if !strings.HasPrefix(c.Key, "ESO ") {
			continue
		}
		if strings.HasPrefix(c.Key, "ESO DPR ") || strings.HasPrefix(c.Key, "ESO PRO ") || strings.HasPrefix(c.Key, "ESO DRS ") {
			continue
		}
		h = putCard(h, c)
	}
	for _, key := range strippedExact {
		h = deleteCard(h, key)
	}
	h = deleteByPrefix(h, "ESO DPR ")

	proTech := in.ProTech
	if proTech == "" {
		proTech = ref.Technique
	}
	proScience := ref.Category == "SCIENCE"

	h = putCard(h, fitsio.Card{Key: "PIPEFILE", Value: productFile})
	h = putCard(h, fitsio.Card{Key: "PRO DID", Value: proDataID})
	h = putCard(h, fitsio.Card{Key: "PRO CATG", Value: in.ProCatg})
	h = putCard(h, fitsio.Card{Key: "PRO TYPE", Value: "REDUCED"})
	h = putCard(h, fitsio.Card{Key: "PRO TECH", Value: proTech})
	h = putCard(h, fitsio.Card{Key: "PRO SCIENCE", Value: proScience})
	h = putCard(h, fitsio.Card{Key: "PRO REC1 ID", Value: in.RunID})
	h = putCard(h, fitsio.Card{Key: "PRO REC1 DRS ID", Value: in.DRSID})
	h = putCard(h, fitsio.Card{Key: "PRO REC1 PIPE ID", Value: in.PipeID})

	for i, r := range raw {
		n := i + 1
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 RAW%d NAME", n), Value: r.Path})
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 RAW%d CATG", n), Value: r.Category})
	}
	if _, ok := getCard(h, "PRO DATANCOM"); !ok {
		h = putCard(h, fitsio.Card{Key: "PRO DATANCOM", Value: int64(len(raw))})
	}
	for i, c := range calib {
		n := i + 1
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 CAL%d NAME", n), Value: c.Path})
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 CAL%d CATG", n), Value: c.Category})
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 CAL%d DATAMD5", n), Value: c.DataMD5})
	}

	paramNames := make([]string, 0, len(in.Params))
	for name := range in.Params {
		paramNames = append(paramNames, name)
	}
	sort.Strings(paramNames)
	for i, name := range paramNames {
		n := i + 1
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 PARAM%d NAME", n), Value: name})
		h = putCard(h, fitsio.Card{Key: fmt.Sprintf("PRO REC1 PARAM%d VALUE", n), Value: in.Params[name]})
	}

	product.Primary.Header = h
	digest := fitsio.MD5Signature(product.Encode())
	product.Primary.Header = putCard(product.Primary.Header, fitsio.Card{Key: "DATAMD5", Value: digest})
	return nil
}

// sortedByMJD returns a copy of refs ordered by ascending MJD-OBS.
func sortedByMJD(refs []FrameRef) []FrameRef {
	out := append([]FrameRef(nil), refs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MJDObs < out[j].MJDObs })
	return out
}

// pickReference selects the earliest RAW frame, falling back to the
// earliest CALIB frame.
func pickReference(raw, calib []FrameRef) (FrameRef, error) {
	if len(raw) > 0 {
		return raw[0], nil
	}
	if len(calib) > 0 {
		return calib[0], nil
	}
	return FrameRef{}, kind.New(kind.DataNotFound, "provenance requires at least one RAW or CALIB frame")
}

func getCard(cards []fitsio.Card, key string) (fitsio.Card, bool) {
	for _, c := range cards {
		if c.Key == key {
			return c, true
		}
	}
	return fitsio.Card{}, false
}

// putCard appends c, or overwrites the existing card of the same key in
// place.
func putCard(cards []fitsio.Card, c fitsio.Card) []fitsio.Card {
	for i, existing := range cards {
		if existing.Key == c.Key {
			cards[i] = c
			return cards
		}
	}
	return append(cards, c)
}

func deleteCard(cards []fitsio.Card, key string) []fitsio.Card {
	out := cards[:0]
	for _, c := range cards {
		if c.Key != key {
			out = append(out, c)
		}
	}
	return out
}

func deleteByPrefix(cards []fitsio.Card, prefix string) []fitsio.Card {
	out := cards[:0]
	for _, c := range cards {
		if !strings.HasPrefix(c.Key, prefix) {
			out = append(out, c)
		}
	}
	return out
}
