package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kjstillabower/weather-insights-service/internal/models"
)

var errMalformed = errors.New("malformed upstream payload")

// SpriteURL is the artwork URL pattern for listing entries.
const SpriteURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/%s.png"

// PokemonClient fetches pokemon data from PokeAPI.
type PokemonClient interface {
	ListPokemon(ctx context.Context, limit, offset int) ([]models.PokemonSummary, error)
	GetPokemon(ctx context.Context, idOrName string) (models.Pokemon, error)
}

// PokeAPIClient implements PokemonClient against the public PokeAPI.
type PokeAPIClient struct {
	baseURL string
	http    *httpGetter
}

// NewPokeAPIClient creates a client for baseURL (e.g. https://pokeapi.co/api/v2).
func NewPokeAPIClient(baseURL string, opts Options) (*PokeAPIClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid pokeapi url: %w", err)
	}
	return &PokeAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPGetter("pokeapi", opts),
	}, nil
}

// ListPokemon returns one listing page. IDs are taken from each entry's resource URL.
func (c *PokeAPIClient) ListPokemon(ctx context.Context, limit, offset int) ([]models.PokemonSummary, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	body, err := c.http.get(ctx, c.baseURL+"/pokemon?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return parsePokemonList(body)
}

// GetPokemon returns the detail of a pokemon by numeric id or lowercase name.
func (c *PokeAPIClient) GetPokemon(ctx context.Context, idOrName string) (models.Pokemon, error) {
	body, err := c.http.get(ctx, c.baseURL+"/pokemon/"+url.PathEscape(idOrName))
	if err != nil {
		return models.Pokemon{}, err
	}
	return parsePokemon(body)
}

func parsePokemonList(body []byte) ([]models.PokemonSummary, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", errMalformed)
	}
	items := gjson.GetBytes(body, "results")
	if !items.IsArray() {
		return nil, fmt.Errorf("%w: missing results", errMalformed)
	}
	out := make([]models.PokemonSummary, 0, len(items.Array()))
	items.ForEach(func(_, item gjson.Result) bool {
		id := idFromResourceURL(item.Get("url").String())
		out = append(out, models.PokemonSummary{
			ID:    id,
			Name:  item.Get("name").String(),
			Image: fmt.Sprintf(SpriteURL, id),
		})
		return true
	})
	return out, nil
}

// idFromResourceURL returns the last non-empty path segment,
// e.g. "https://pokeapi.co/api/v2/pokemon/25/" -> "25".
func idFromResourceURL(u string) string {
	parts := strings.Split(u, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

func parsePokemon(body []byte) (models.Pokemon, error) {
	if !gjson.ValidBytes(body) {
		return models.Pokemon{}, fmt.Errorf("%w: invalid json", errMalformed)
	}
	doc := gjson.ParseBytes(body)
	if !doc.Get("id").Exists() {
		return models.Pokemon{}, fmt.Errorf("%w: missing id", errMalformed)
	}
	p := models.Pokemon{
		ID:        int(doc.Get("id").Int()),
		Name:      doc.Get("name").String(),
		Height:    int(doc.Get("height").Int()),
		Weight:    int(doc.Get("weight").Int()),
		Image:     doc.Get("sprites.front_default").String(),
		Types:     stringList(doc.Get("types.#.type.name")),
		Abilities: stringList(doc.Get("abilities.#.ability.name")),
		Stats:     []models.PokemonStat{},
	}
	doc.Get("stats").ForEach(func(_, s gjson.Result) bool {
		p.Stats = append(p.Stats, models.PokemonStat{
			Name:  s.Get("stat.name").String(),
			Value: int(s.Get("base_stat").Int()),
		})
		return true
	})
	return p, nil
}

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}
