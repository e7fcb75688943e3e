package models

// PokemonSummary is one entry of a paged pokemon listing.
type PokemonSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// PokemonPage is a page of the pokemon listing.
type PokemonPage struct {
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	Results    []PokemonSummary `json:"results"`
}

// PokemonStat is a base stat entry.
type PokemonStat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Pokemon is the simplified detail shape served by the proxy.
type Pokemon struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Height    int           `json:"height"`
	Weight    int           `json:"weight"`
	Image     string        `json:"image"`
	Types     []string      `json:"types"`
	Abilities []string      `json:"abilities"`
	Stats     []PokemonStat `json:"stats"`
}
