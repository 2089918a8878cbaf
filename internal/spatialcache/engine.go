package spatialcache

import "sync"

// UpdateToken is the handle BeginUpdate hands back and EndUpdate /
// GetNextUpdatable require. Go has no notion of "the calling thread" to
// check against the way spec §4.8's Design Notes describe, so the cache
// substitutes a per-acquisition token: GetNextUpdatable raises
// ErrSyncConflict unless it is passed the token the current lock holder
// received from BeginUpdate.
type UpdateToken struct{}

// Cache is the spatial object store. All exported methods lock mu once;
// methods with a "Locked" suffix assume the caller already holds it and
// exist only so one public method can call another's logic without
// Go's non-reentrant sync.Mutex deadlocking (spec §4.8 Design Notes).
type Cache struct {
	mu sync.Mutex

	originX, originY int
	width, height    int // extent: valid x in [originX, originX+width-1]

	ids    map[uint64]Object
	owners map[uint64][]Object
	cells  [][]Object // [y-originY][x-originX]

	updatables []Updatable
	lockHolder *UpdateToken
}

// NewCache builds an empty cache covering the rectangle
// [originX, originX+width) x [originY, originY+height).
func NewCache(originX, originY, width, height int) *Cache {
	cells := make([][]Object, height)
	for i := range cells {
		cells[i] = make([]Object, width)
	}
	return &Cache{
		originX: originX,
		originY: originY,
		width:   width,
		height:  height,
		ids:     make(map[uint64]Object),
		owners:  make(map[uint64][]Object),
		cells:   cells,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// clampAxis intersects the rectangle [start, start+length) on one axis
// against [origin, origin+extent), per spec §4.8 "clamp(start, end)
// enforces start >= origin and end <= origin + extent - 1". ok is false
// when the rectangle lies entirely outside the cache.
func clampAxis(start, length, origin, extent int) (lo, hi int, ok bool) {
	lo = start
	hi = start + length - 1
	if lo < origin {
		lo = origin
	}
	if hi > origin+extent-1 {
		hi = origin + extent - 1
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

func (c *Cache) clampRect(x, y, width, height int) (x0, y0, x1, y1 int, ok bool) {
	x0, x1, okx := clampAxis(x, width, c.originX, c.width)
	y0, y1, oky := clampAxis(y, height, c.originY, c.height)
	if !okx || !oky {
		return 0, 0, 0, 0, false
	}
	return x0, y0, x1, y1, true
}

func (c *Cache) inBounds(x, y int) bool {
	return x >= c.originX && x < c.originX+c.width && y >= c.originY && y < c.originY+c.height
}

func (c *Cache) cellAt(x, y int) *Object {
	return &c.cells[y-c.originY][x-c.originX]
}

// registerLocked adds obj to the id, owner, and (if applicable) updatable
// indices. It does not touch the grid; callers that occupy cells do that
// separately.
func (c *Cache) registerLocked(obj Object) {
	c.ids[obj.ObjectID()] = obj
	if owner := obj.ObjectOwner(); owner != 0 {
		c.owners[owner] = append(c.owners[owner], obj)
	}
	if u, ok := obj.(Updatable); ok {
		c.updatables = append(c.updatables, u)
	}
}

func (c *Cache) unregisterLocked(obj Object) {
	delete(c.ids, obj.ObjectID())

	if owner := obj.ObjectOwner(); owner != 0 {
		list := c.owners[owner]
		for i, o := range list {
			if o.ObjectID() == obj.ObjectID() {
				c.owners[owner] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(c.owners[owner]) == 0 {
			delete(c.owners, owner)
		}
	}

	if _, ok := obj.(Updatable); ok {
		for i, u := range c.updatables {
			if u.ObjectID() == obj.ObjectID() {
				c.updatables = append(c.updatables[:i], c.updatables[i+1:]...)
				break
			}
		}
	}
}

// AddObject registers a non-spatial object (id/owner only, spec §4.8
// "Add object"). It never occupies a cell.
func (c *Cache) AddObject(obj Object) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.ids[obj.ObjectID()]; exists {
		return false
	}
	c.registerLocked(obj)
	return true
}

// AddMapObject places obj's rectangle on the grid after clamping it to
// bounds, failing if any clamped cell is already occupied (spec §4.8
// "Add map object"). The id must be unique.
func (c *Cache) AddMapObject(obj *MapObject) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addMapObjectLocked(obj)
}

func (c *Cache) addMapObjectLocked(obj *MapObject) bool {
	if _, exists := c.ids[obj.ID]; exists {
		return false
	}
	x0, y0, x1, y1, ok := c.clampRect(obj.X, obj.Y, obj.Width, obj.Height)
	if !ok {
		return false
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if *c.cellAt(x, y) != nil {
				return false
			}
		}
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			*c.cellAt(x, y) = obj
		}
	}
	c.registerLocked(obj)
	return true
}

// RemoveObject drops the identified object from the id/owner/updatable
// indices and, if it is a map object, clears the cells it occupied
// (spec §4.8 "Remove object" — symmetric with Add).
func (c *Cache) RemoveObject(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeObjectLocked(id)
}

func (c *Cache) removeObjectLocked(id uint64) bool {
	obj, ok := c.ids[id]
	if !ok {
		return false
	}
	if mo, ok := obj.(*MapObject); ok {
		if x0, y0, x1, y1, ok2 := c.clampRect(mo.X, mo.Y, mo.Width, mo.Height); ok2 {
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					if cell := c.cellAt(x, y); *cell == obj {
						*cell = nil
					}
				}
			}
		}
	}
	c.unregisterLocked(obj)
	return true
}

// GetByID returns a clone of the object with the given id, if present.
func (c *Cache) GetByID(id uint64) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.ids[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// GetAt returns a clone of whatever object occupies (x, y), if any.
func (c *Cache) GetAt(x, y int) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inBounds(x, y) {
		return nil, false
	}
	obj := *c.cellAt(x, y)
	if obj == nil {
		return nil, false
	}
	return obj.Clone(), true
}

// isRootCell reports whether (x, y) is obj's root cell, so rectangle scans
// can report each occupant exactly once.
func isRootCell(obj Object, x, y int) bool {
	mo, ok := obj.(*MapObject)
	if !ok {
		return true
	}
	return mo.X == x && mo.Y == y
}

// GetInRectangle returns a clone of each distinct object whose root cell
// falls in the rectangle after clamping to bounds (spec §4.8 "Get in
// rectangle").
func (c *Cache) GetInRectangle(x, y, width, height int) []Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getInRectangleLocked(x, y, width, height)
}

func (c *Cache) getInRectangleLocked(x, y, width, height int) []Object {
	x0, y0, x1, y1, ok := c.clampRect(x, y, width, height)
	if !ok {
		return nil
	}
	var out []Object
	for yy := y0; yy <= y1; yy++ {
		for xx := x0; xx <= x1; xx++ {
			obj := *c.cellAt(xx, yy)
			if obj == nil || !isRootCell(obj, xx, yy) {
				continue
			}
			out = append(out, obj.Clone())
		}
	}
	return out
}

// IsAreaEmpty reports whether every cell in the clamped rectangle is
// unoccupied. An out-of-bounds rectangle is vacuously empty.
func (c *Cache) IsAreaEmpty(x, y, width, height int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	x0, y0, x1, y1, ok := c.clampRect(x, y, width, height)
	if !ok {
		return true
	}
	for yy := y0; yy <= y1; yy++ {
		for xx := x0; xx <= x1; xx++ {
			if *c.cellAt(xx, yy) != nil {
				return false
			}
		}
	}
	return true
}

// GetUsersWithLOSAt returns the distinct non-zero owners of any object
// occupying the losRadius-box around (x, y), clamped to bounds (spec
// §4.8 "Get users with LOS at").
func (c *Cache) GetUsersWithLOSAt(x, y, losRadius int) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	x0, y0, x1, y1, ok := c.clampRect(x-losRadius, y-losRadius, 2*losRadius+1, 2*losRadius+1)
	if !ok {
		return nil
	}
	seen := make(map[uint64]bool)
	var owners []uint64
	for yy := y0; yy <= y1; yy++ {
		for xx := x0; xx <= x1; xx++ {
			obj := *c.cellAt(xx, yy)
			if obj == nil {
				continue
			}
			owner := obj.ObjectOwner()
			if owner == 0 || seen[owner] {
				continue
			}
			seen[owner] = true
			owners = append(owners, owner)
		}
	}
	return owners
}

// GetInOwnerLOS unions the losRadius-box around every map object owned by
// owner, clamped to bounds, and returns a clone of each distinct object
// whose root cell lies in that union (spec §4.8 "Get in owner LOS"). An
// object that reaches into a box only with non-root cells is not returned.
func (c *Cache) GetInOwnerLOS(owner uint64, losRadius int) []Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getInOwnerLOSLocked(owner, losRadius)
}

func (c *Cache) getInOwnerLOSLocked(owner uint64, losRadius int) []Object {
	seen := make(map[uint64]bool)
	var out []Object
	for _, obj := range c.owners[owner] {
		mo, ok := obj.(*MapObject)
		if !ok {
			continue
		}
		x0, y0, x1, y1, ok2 := c.clampRect(mo.X-losRadius, mo.Y-losRadius, 2*losRadius+1, 2*losRadius+1)
		if !ok2 {
			continue
		}
		for yy := y0; yy <= y1; yy++ {
			for xx := x0; xx <= x1; xx++ {
				cell := *c.cellAt(xx, yy)
				if cell == nil || !isRootCell(cell, xx, yy) || seen[cell.ObjectID()] {
					continue
				}
				seen[cell.ObjectID()] = true
				out = append(out, cell.Clone())
			}
		}
	}
	return out
}

// GetInOwnerLOSBox is GetInOwnerLOS filtered to objects whose root cell
// lies within box (spec §4.8 "Variant with a bounding box").
func (c *Cache) GetInOwnerLOSBox(owner uint64, losRadius int, box Rect) []Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.getInOwnerLOSLocked(owner, losRadius)
	var out []Object
	for _, obj := range all {
		mo, ok := obj.(*MapObject)
		if !ok {
			continue
		}
		if mo.X >= box.X && mo.X < box.X+box.Width && mo.Y >= box.Y && mo.Y < box.Y+box.Height {
			out = append(out, obj)
		}
	}
	return out
}

// IsLocationInLOS reports whether some map object owned by owner has a
// footprint intersecting the losRadius-box around (x, y), clamped to
// bounds — the predicate GetUsersWithLOSAt's membership test reduces to
// (spec §8 "LOS symmetry").
func (c *Cache) IsLocationInLOS(owner uint64, x, y, losRadius int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	bx0, by0, bx1, by1, ok := c.clampRect(x-losRadius, y-losRadius, 2*losRadius+1, 2*losRadius+1)
	if !ok {
		return false
	}
	for _, obj := range c.owners[owner] {
		mo, ok := obj.(*MapObject)
		if !ok {
			continue
		}
		mx0, my0 := mo.X, mo.Y
		mx1, my1 := mo.X+mo.Width-1, mo.Y+mo.Height-1
		if mx0 <= bx1 && mx1 >= bx0 && my0 <= by1 && my1 >= by0 {
			return true
		}
	}
	return false
}

// BeginUpdate acquires the cache's single lock for the duration of an
// update tick and returns the token GetNextUpdatable and EndUpdate
// require.
func (c *Cache) BeginUpdate() *UpdateToken {
	c.mu.Lock()
	t := &UpdateToken{}
	c.lockHolder = t
	return t
}

// EndUpdate releases the lock acquired by BeginUpdate. Calling it with a
// stale token is a no-op: whoever currently holds the lock still owns the
// release.
func (c *Cache) EndUpdate(t *UpdateToken) {
	if c.lockHolder != t {
		return
	}
	c.lockHolder = nil
	c.mu.Unlock()
}

// GetNextUpdatable returns the updatable at index pos, or nil past the
// end. It raises ErrSyncConflict unless called with the token the current
// BeginUpdate caller holds (spec §4.8 "get_next_updatable").
func (c *Cache) GetNextUpdatable(t *UpdateToken, pos int) (Updatable, error) {
	if t == nil || c.lockHolder != t {
		return nil, ErrSyncConflict
	}
	if pos < 0 || pos >= len(c.updatables) {
		return nil, nil
	}
	return c.updatables[pos], nil
}

// UpdatableCount returns the number of registered updatables, for callers
// driving a GetNextUpdatable loop without an off-by-one guess.
func (c *Cache) UpdatableCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updatables)
}
