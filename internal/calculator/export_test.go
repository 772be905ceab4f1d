package calculator

// Sync runs one synchronization under the mirror session.
func (c *Calculator) Sync() error {
	c.mirror.session.Lock()
	defer c.mirror.session.Unlock()
	return c.sync()
}
