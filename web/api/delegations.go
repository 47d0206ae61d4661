package api

// ChainRequest represents GET /delegations/{address}/chain
type ChainRequest struct {
	Address  string `path:"address"`
	MaxDepth int    `query:"max_depth"` // 0 means the server cap
}

// ChainResponse describes an existing delegation chain.
// Warning is informational here; Truncated reads "continues beyond limit".
type ChainResponse struct {
	Address    string   `json:"address"`
	Path       []string `json:"path"`
	Depth      int      `json:"depth"`
	HasCycle   bool     `json:"has_cycle"`
	CycleIndex *int     `json:"cycle_index,omitempty"`
	Truncated  bool     `json:"truncated"`
	Partial    bool     `json:"partial"`
	Error      string   `json:"error,omitempty"`
	Warning    string   `json:"warning"`
}

// CheckRequest represents GET /delegations/check
type CheckRequest struct {
	From string `query:"from"`
	To   string `query:"to"`
}

// CheckResponse grades a delegation before it is submitted
type CheckResponse struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Path      []string `json:"path"`
	Depth     int      `json:"depth"`
	HasCycle  bool     `json:"has_cycle"`
	Truncated bool     `json:"truncated"`
	Partial   bool     `json:"partial"`
	Error     string   `json:"error,omitempty"`
	Warning   string   `json:"warning"`
	Blocked   bool     `json:"blocked"`
}

// Contribution is one delegator's share of a power snapshot. Amounts are decimal strings.
type Contribution struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Hops    int    `json:"hops"`
	Via     string `json:"via"`
}

// PowerResponse represents GET /delegations/{address}/power
type PowerResponse struct {
	Address     string         `json:"address"`
	Balance     string         `json:"balance"`
	Effective   string         `json:"effective"`
	Delegated   bool           `json:"delegated"`
	Delegate    string         `json:"delegate,omitempty"`
	Direct      []Contribution `json:"direct"`
	PassThrough []Contribution `json:"pass_through"`
	Incomplete  bool           `json:"incomplete"`
	Truncated   bool           `json:"truncated"`
	Missing     []string       `json:"missing"`
	FetchedAt   string         `json:"fetched_at"`
	ExpiresAt   string         `json:"expires_at"`
}

// CapabilitiesResponse represents GET /capabilities/{address}
type CapabilitiesResponse struct {
	Address      string   `json:"address"`
	Capabilities []string `json:"capabilities"`
	FetchedAt    string   `json:"fetched_at"`
	ExpiresAt    string   `json:"expires_at"`
}
