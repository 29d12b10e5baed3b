package blockid

// Kind distinguishes the two kinds of block the header bit in a BlockId
// records: opaque data with no internal structure, or a structured info
// block decodable by the infoblock package.
type Kind int

const (
	// DataKind blocks are 100% data; there is no metadata.
	DataKind Kind = iota
	// InfoKind blocks start with a header describing the remaining contents.
	InfoKind
)

func (k Kind) hasHeader() bool { return k == InfoKind }

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == InfoKind {
		return "Info"
	}
	return "Data"
}
