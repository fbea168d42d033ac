package types

// Version is the canonical project version.
// The CLI and library surfaces share this version; release tags must
// match this constant.
const Version = "0.1.0"
