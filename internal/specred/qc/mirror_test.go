package qc

import "testing"

func TestPAFKeyStripsPrefixAndDots(t *testing.T) {
	if got := PAFKey("ESO QC BIAS LEVEL"); got != "QC.BIAS.LEVEL" {
		t.Fatalf("PAFKey = %q, want QC.BIAS.LEVEL", got)
	}
}

func TestDescriptorNameRestoresPrefixAndSpaces(t *testing.T) {
	if got := DescriptorName("QC.BIAS.LEVEL"); got != "ESO QC BIAS LEVEL" {
		t.Fatalf("DescriptorName = %q, want \"ESO QC BIAS LEVEL\"", got)
	}
}

func TestMirrorToPAFUsesAliasedKey(t *testing.T) {
	p := NewPAF()
	g := p.Start()
	if err := MirrorToPAF(g, "ESO QC DATA MEDIAN", NewDoubleParam("", 42.0, "")); err != nil {
		t.Fatalf("MirrorToPAF: %v", err)
	}
	param, ok := p.Get("QC.DATA.MEDIAN")
	if !ok || param.Double != 42.0 {
		t.Fatalf("expected mirrored param QC.DATA.MEDIAN=42.0, got %+v ok=%v", param, ok)
	}
}

func TestMirrorFromPAFResolvesDescriptorName(t *testing.T) {
	p := NewPAF()
	p.AddInt("QC.BIAS.LEVEL", 7, "")
	param, ok := MirrorFromPAF(p, "ESO QC BIAS LEVEL")
	if !ok || param.Int != 7 {
		t.Fatalf("expected mirrored-back param=7, got %+v ok=%v", param, ok)
	}
}
