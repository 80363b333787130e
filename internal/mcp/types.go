package mcp

// --- Tool Arguments ---

type WeightedTag struct {
	Tag      string  `json:"tag" jsonschema:"Genome tag name, e.g. 'dystopia'"`
	Priority float32 `json:"priority" jsonschema:"Weight of the tag. Negative values push movies with the tag down"`
}

type SearchMoviesArgs struct {
	Tags      []WeightedTag `json:"tags" jsonschema:"Weighted genome tags describing the wanted movies. Unknown tags are ignored"`
	Threshold *float32      `json:"threshold,omitempty" jsonschema:"Drop map regions scoring below this value"`
	Count     *int          `json:"count,omitempty" jsonschema:"Maximum number of movies to return (default 20)"`
}

type SearchTagsArgs struct {
	Tags      []string `json:"tags" jsonschema:"Genome tags to compare against"`
	Method    string   `json:"method,omitempty" jsonschema:"Either 'similar' (symmetric) or 'enclosed' (tags that contain the given ones). Default 'similar'"`
	Threshold *float32 `json:"threshold,omitempty" jsonschema:"Only return tags scoring at most this value"`
	Count     *int     `json:"count,omitempty" jsonschema:"Maximum number of tags to return (default 20)"`
}

type MapInfoArgs struct{}
