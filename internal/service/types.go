// Package service holds the layer catalog, source loading, viewer sessions
// and the session event bus.
package service

// LayerConfig describes one map layer of the catalog. The struct tags feed
// both the YAML catalog and the OpenAPI schema.
type LayerConfig struct {
	ID          string       `json:"id" yaml:"id" doc:"Unique layer identifier" example:"roadless-fill"`
	Name        string       `json:"name" yaml:"name" doc:"Display name" example:"Roadless areas"`
	Source      string       `json:"source" yaml:"source" doc:"Source the layer draws from" example:"roadless"`
	Type        string       `json:"type" yaml:"type" enum:"fill,line" doc:"Render type" example:"fill"`
	Kind        string       `json:"kind" yaml:"kind" enum:"area,trail,district" doc:"Feature kind, selects the popup" example:"area"`
	Interactive bool         `json:"interactive" yaml:"interactive" doc:"Whether the layer takes part in hover and click"`
	MinZoom     float64      `json:"minZoom,omitempty" yaml:"minZoom,omitempty" minimum:"0" maximum:"22" doc:"Lowest zoom the layer renders at"`
	MaxZoom     float64      `json:"maxZoom,omitempty" yaml:"maxZoom,omitempty" minimum:"0" maximum:"22" doc:"Highest zoom the layer renders at, 0 for none"`
	Color       string       `json:"color" yaml:"color" doc:"Fill or stroke color (CSS)" example:"#2e7d32"`
	Opacity     float64      `json:"opacity,omitempty" yaml:"opacity,omitempty" minimum:"0" maximum:"1" doc:"Opacity (0-1)" example:"0.5"`
	Width       float64      `json:"width,omitempty" yaml:"width,omitempty" minimum:"0" doc:"Line width in pixels" example:"2"`
	Legend      []LegendItem `json:"legend,omitempty" yaml:"legend,omitempty" doc:"Legend entries for this layer"`
}

// LegendItem defines a legend entry.
type LegendItem struct {
	Label string `json:"label" yaml:"label" doc:"Legend label"`
	Color string `json:"color" yaml:"color" doc:"Legend color (CSS)"`
}

// SourceConfig describes where a source's features come from.
type SourceConfig struct {
	ID   string `json:"id" yaml:"id" doc:"Unique source identifier" example:"roadless"`
	File string `json:"file,omitempty" yaml:"file,omitempty" doc:"File under the sources directory (.geojson, .json or .shp)" example:"or_roadless.geojson"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty" doc:"Remote vector tile URL; such sources carry no features server side"`
}

// Catalog is the content of layers.yaml.
type Catalog struct {
	Sources []SourceConfig `yaml:"sources"`
	// Layers are listed bottom to top.
	Layers []LayerConfig `yaml:"layers"`
	// Priority lists interactive layers from lowest to highest click precedence.
	// Empty means the built-in order.
	Priority []string `yaml:"priority,omitempty"`
	// TrailRules relabel generic trail segments by name substring.
	TrailRules []TrailRule `yaml:"trailRules,omitempty"`
}

// TrailRule is the YAML form of a trail relabel rule.
type TrailRule struct {
	Match       string `yaml:"match"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SourceFile represents a source data file on disk.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"or_trails.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	Bytes    int64  `json:"bytes" doc:"File size in bytes"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}
