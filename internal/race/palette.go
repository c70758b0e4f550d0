package race

// Paired is the 12-colour categorical palette of light/dark pairs.
var Paired = []string{
	"#a6cee3", "#1f78b4", "#b2df8a", "#33a02c",
	"#fb9a99", "#e31a1c", "#fdbf6f", "#ff7f00",
	"#cab2d6", "#6a3d9a", "#ffff99", "#b15928",
}

// Category10 is the classic ten-colour categorical palette.
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var Tableau10 = []string{
	"#4e79a7", "#f28e2c", "#e15759", "#76b7b2", "#59a14f",
	"#edc949", "#af7aa1", "#ff9da7", "#9c755f", "#bab0ab",
}

var Dark2 = []string{
	"#1b9e77", "#d95f02", "#7570b3", "#e7298a",
	"#66a61e", "#e6ab02", "#a6761d", "#666666",
}

// Palettes maps palette names to colours.
var Palettes = map[string][]string{
	"paired":     Paired,
	"category10": Category10,
	"tableau10":  Tableau10,
	"dark2":      Dark2,
}

// ColorScale assigns palette entries to keys in first-seen order, cycling
// when keys outnumber colours. An assignment never changes once made.
type ColorScale struct {
	palette []string
	index   map[string]int
	next    int
}

// NewColorScale seeds the scale with keys so that colours depend only on
// dataset order, not on which keys happen to be visible.
func NewColorScale(palette []string, keys []string) *ColorScale {
	if len(palette) == 0 {
		palette = Paired
	}
	c := &ColorScale{palette: palette, index: make(map[string]int, len(keys))}
	for _, k := range keys {
		c.assign(k)
	}
	return c
}

func (c *ColorScale) assign(key string) int {
	if i, ok := c.index[key]; ok {
		return i
	}
	i := c.next
	c.index[key] = i
	c.next++
	return i
}

// Index returns key's slot, assigning the next slot to unseen keys. Hosts
// that swap palettes mid-race map the slot onto their own colours.
func (c *ColorScale) Index(key string) int {
	return c.assign(key)
}

// Color returns key's colour, assigning the next slot to unseen keys.
func (c *ColorScale) Color(key string) string {
	return c.palette[c.assign(key)%len(c.palette)]
}

// Len reports how many keys have been assigned.
func (c *ColorScale) Len() int { return len(c.index) }
