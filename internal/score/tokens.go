package score

// TokenBand is one step of the score to token award table.
// Min is inclusive; Max is exclusive except for the top band.
type TokenBand struct {
	Min    int `json:"min"`
	Max    int `json:"max"`
	Tokens int `json:"tokens"`
}

// TokenBands is ordered from the highest band down
var TokenBands = []TokenBand{
	{Min: 400, Max: 500, Tokens: 250},
	{Min: 300, Max: 400, Tokens: 100},
	{Min: 200, Max: 300, Tokens: 50},
	{Min: 100, Max: 200, Tokens: 25},
	{Min: 0, Max: 100, Tokens: 10},
}

// TokensForScore returns the airdrop amount for a final score
func TokensForScore(score int) int {
	for _, band := range TokenBands {
		if score >= band.Min {
			return band.Tokens
		}
	}
	return TokenBands[len(TokenBands)-1].Tokens
}
