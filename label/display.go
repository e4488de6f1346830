package label

import "encoding/base64"

// Bytes is the typed wrapper atproto uses to carry raw bytes in JSON.
type Bytes struct {
	Base64 string `json:"$bytes"`
}

// Formatted is the wire/JSON display form of a stored label: all fields
// plus Sig rendered as a base64-wrapped byte string. Ver is always 1.
type Formatted struct {
	Ver int    `json:"ver"`
	Src string `json:"src"`
	URI string `json:"uri"`
	CID string `json:"cid,omitempty"`
	Val string `json:"val"`
	Neg bool   `json:"neg,omitempty"`
	Cts string `json:"cts"`
	Exp string `json:"exp,omitempty"`
	Sig Bytes  `json:"sig"`
}

// Format converts a stored label into its display form.
func Format(s Stored) Formatted {
	return Formatted{
		Ver: 1,
		Src: s.Src,
		URI: s.URI,
		CID: s.CID,
		Val: s.Val,
		Neg: s.Neg,
		Cts: s.Cts,
		Exp: s.Exp,
		Sig: Bytes{Base64: base64.StdEncoding.EncodeToString(s.Sig)},
	}
}

// FormatAll converts a slice of stored labels into their display forms,
// preserving order.
func FormatAll(labels []Stored) []Formatted {
	out := make([]Formatted, len(labels))
	for i, l := range labels {
		out[i] = Format(l)
	}
	return out
}
