package qc

import (
	"strings"
	"testing"
)

func TestFormatLineRightAlignsValue(t *testing.T) {
	line := formatLine(NewIntParam("QC.BIAS.LEVEL", 42, ""))
	value := line[valueColumn:]
	if strings.TrimSpace(value) != "42;" {
		t.Fatalf("value column = %q, want \"42;\"", value)
	}
	if len(line) < valueColumn {
		t.Fatalf("line too short to carry a value at column %d: %q", valueColumn, line)
	}
}

func TestPAFWriteToProducesOneLinePerParam(t *testing.T) {
	p := NewPAF()
	p.AddInt("QC.DATANCOM", 2, "number of combined frames")
	p.AddDouble("QC.BIAS.LEVEL", 123.456, "")
	p.AddString("QC.FILTER", "free", "")

	var buf strings.Builder
	if err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
}

func TestGroupRejectsAddAfterEnd(t *testing.T) {
	p := NewPAF()
	g := p.Start()
	if err := g.AddInt("QC.A", 1, ""); err != nil {
		t.Fatalf("AddInt before End: %v", err)
	}
	g.End()
	if err := g.AddInt("QC.B", 2, ""); err == nil {
		t.Fatal("expected error adding after End")
	}
	if len(p.Params) != 1 {
		t.Fatalf("expected only the pre-End param to have been recorded, got %d", len(p.Params))
	}
}
