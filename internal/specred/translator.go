package specred

import "github.com/eso-vlt/vimos-specred/internal/specred/kind"

// DefaultAliases is the built-in mapping from abstract alias names to
// concrete FITS keyword strings, seeded into every fresh Translator. The
// pipeline database's keyword_alias table is filled separately through
// pipedb.SetAlias; no code copies these defaults into it.
var DefaultAliases = map[string]string{
	"BiasLevel":  "ESO QC BIAS LEVEL",
	"DataMedian": "ESO QC DATA MEDIAN",
	"FilterId":   "ESO INS FILT1 NAME",
	"Quadrant":   "ESO OCS CON QUAD",
	"MjdObs":     "MJD-OBS",
	"AirMass":    "ESO TEL AIRM START",
	"WlenStart":  "ESO PRO WLEN START",
	"WlenInc":    "ESO PRO WLEN INC",
	"LampName":   "ESO INS LAMPi NAME",
	"LampState":  "ESO INS LAMPi STATE",
	"LampTime":   "ESO INS LAMPi TIME",
}

// Translator maps abstract alias names to concrete FITS keyword strings.
// All descriptor header reads/writes in recipe code go through a
// Translator rather than hard-coding FITS keywords, so an installation can
// remap a keyword without touching recipe logic. A Translator is populated
// once and is safe for concurrent reads thereafter.
type Translator struct {
	aliases map[string]string
}

// NewTranslator returns a Translator seeded with DefaultAliases.
func NewTranslator() *Translator {
	t := &Translator{aliases: make(map[string]string, len(DefaultAliases))}
	for k, v := range DefaultAliases {
		t.aliases[k] = v
	}
	return t
}

// Set overrides or adds an alias mapping.
func (t *Translator) Set(alias, keyword string) {
	t.aliases[alias] = keyword
}

// Keyword resolves an alias to its concrete FITS keyword.
func (t *Translator) Keyword(alias string) (string, error) {
	kw, ok := t.aliases[alias]
	if !ok {
		return "", kind.New(kind.DataNotFound, "no keyword alias registered for %q", alias)
	}
	return kw, nil
}

// LampKeyword resolves a per-lamp alias (LampName/LampState/LampTime) for
// lamp index i in 1..5, substituting "i" into the keyword template.
func (t *Translator) LampKeyword(alias string, i int) (string, error) {
	kw, err := t.Keyword(alias)
	if err != nil {
		return "", err
	}
	if i < 1 || i > 5 {
		return "", kind.New(kind.OutOfRange, "lamp index %d out of range [1,5]", i)
	}
	out := make([]byte, 0, len(kw))
	for j := 0; j < len(kw); j++ {
		if kw[j] == 'i' && j > 0 && kw[j-1] == 'P' {
			out = append(out, byte('0'+i))
			continue
		}
		out = append(out, kw[j])
	}
	return string(out), nil
}

// Get resolves alias and reads the corresponding descriptor from list.
func (t *Translator) Get(list *DescriptorList, alias string) (*Descriptor, error) {
	kw, err := t.Keyword(alias)
	if err != nil {
		return nil, err
	}
	return list.Get(kw)
}

// All returns a snapshot copy of the alias table.
func (t *Translator) All() map[string]string {
	out := make(map[string]string, len(t.aliases))
	for k, v := range t.aliases {
		out[k] = v
	}
	return out
}
