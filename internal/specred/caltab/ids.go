package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred/polynomial"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagIDS is the IDS table's EXTNAME.
const TagIDS table.TableTag = "IDS"

// IDSTable is a header-only table carrying a multivariate wavelength-
// solution polynomial as descriptor arrays (§3.4, §D.1).
type IDSTable struct {
	*table.Table
}

// NewIDSTable constructs an empty IDS table.
func NewIDSTable() *IDSTable {
	return &IDSTable{Table: table.New(TagIDS)}
}

// Validate checks the IDS table carries a decodable polynomial.
func (i *IDSTable) Validate() error {
	if err := i.Table.Validate(); err != nil {
		return err
	}
	return i.RequireDescriptors("WS_DIM", "WS_NT")
}

// SetPolynomial stores p's dimension, exponents and coefficients as
// descriptors (§D.1).
func (i *IDSTable) SetPolynomial(p *polynomial.Polynomial) {
	encodePolynomial("WS", p, i.Descriptors)
}

// Polynomial reconstructs the stored wavelength-solution polynomial.
func (i *IDSTable) Polynomial() (*polynomial.Polynomial, error) {
	return decodePolynomial("WS", i.Descriptors)
}
