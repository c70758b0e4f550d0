package race

// Container is the attachment point a host renders into. It holds at most
// one surface: mounting again detaches the previous one first.
type Container struct {
	ID      string
	surface *Surface
	mounts  int
}

func NewContainer(id string) *Container {
	return &Container{ID: id}
}

// Mount replaces any existing surface with a fresh one.
func (c *Container) Mount(layout Layout, colors *ColorScale) *Surface {
	if c.surface != nil {
		c.surface.detached = true
		c.surface.bars = make(map[string]*bar)
		c.surface.order = nil
	}
	c.surface = newSurface(layout, colors)
	c.mounts++
	return c.surface
}

// Surface returns the mounted surface, nil before the first mount.
func (c *Container) Surface() *Surface { return c.surface }

// Surfaces returns how many surfaces are attached: 0 or 1.
func (c *Container) Surfaces() int {
	if c.surface == nil {
		return 0
	}
	return 1
}

// Mounts returns how many times Mount has been called.
func (c *Container) Mounts() int { return c.mounts }
