package qc

import "strings"

// descriptorPrefix is the FITS-side prefix stripped when mirroring a
// descriptor name into a PAF key, and restored in the reverse direction.
const descriptorPrefix = "ESO "

// PAFKey converts a descriptor name such as "ESO QC BIAS LEVEL" into
// its QC.PAF key "QC.BIAS.LEVEL": the "ESO " prefix is dropped and the
// remaining space-separated words are joined with dots.
func PAFKey(descriptorName string) string {
	name := strings.TrimPrefix(descriptorName, descriptorPrefix)
	return strings.ReplaceAll(name, " ", ".")
}

// DescriptorName converts a QC.PAF key such as "QC.BIAS.LEVEL" back
// into its descriptor name "ESO QC BIAS LEVEL": dots become spaces and
// the "ESO " prefix is restored.
func DescriptorName(pafKey string) string {
	return descriptorPrefix + strings.ReplaceAll(pafKey, ".", " ")
}

// MirrorToPAF copies a named descriptor's value into the group's active
// PAF under its mirrored QC.PAF key.
func MirrorToPAF(g *Group, name string, param Param) error {
	param.Key = PAFKey(name)
	return g.add(param)
}

// MirrorFromPAF looks up descriptorName's parameter in p under its
// mirrored QC.PAF key, and returns it if present.
func MirrorFromPAF(p *PAF, descriptorName string) (Param, bool) {
	return p.Get(PAFKey(descriptorName))
}
