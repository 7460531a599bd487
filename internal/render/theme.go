package render

// Theme holds colors for global CFG rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by kind.
	EdgeLocal  string // kept local jumps and fallthroughs
	EdgeCall   string // call site to callee entry
	EdgeReturn string // private return to continuation
	EdgeMixed  string // edge produced by more than one rule

	// Node accents.
	EntryBorder  string // global entry block
	TerminalFill string // STOP / RETURN tails
	ExitFill     string // local function exits
	ExternalText string // blocks with no owning function

	// Cluster styling.
	ClusterBorder string // per-function subgraph border
	ClusterLabel  string // per-function subgraph label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeLocal:  "#424242", // dark gray
	EdgeCall:   "#0B3D91", // NASA blue
	EdgeReturn: "#00695C", // teal
	EdgeMixed:  "#E65100", // deep orange

	EntryBorder:  "#FC3D21", // NASA red
	TerminalFill: "#ECEFF1", // blue-gray 50
	ExitFill:     "#FFF8E1", // amber 50
	ExternalText: "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
