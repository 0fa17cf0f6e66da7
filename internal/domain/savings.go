package domain

// Savings quantifies the fee-adjusted advantage of the best quote over
// the median of all ranked quotes. All fields are signed decimal strings
// in the chain's native unit and satisfy
// Total = Performance + FeeSavings - MetaMaskFee exactly.
type Savings struct {
	Performance       string `json:"performance"`
	FeeSavings        string `json:"fee"`
	MetaMaskFee       string `json:"metaMaskFee"`
	MedianMetaMaskFee string `json:"medianMetaMaskFee"`
	Total             string `json:"total"`
}
