package physics

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"
)

// Activate wakes the body, and every body sleeping in its group, and resets
// its idle timer. It is a no-op for static bodies.
func (b *Body) Activate() {
	if b.IsStatic() {
		return
	}
	b.idleTime = 0
	if b.sleepGroup == noGroup {
		return
	}
	b.space.wakeGroup(b.sleepGroup)
}

// wakeContacts wakes the sleeping bodies touching b. With only set, just the
// contacts of that kernel shape count.
func (b *Body) wakeContacts(only *cp.Shape) {
	if b.space == nil {
		return
	}
	b.kernel.EachArbiter(func(arb *cp.Arbiter) {
		own, other := arb.Shapes()
		if only != nil && own != only {
			return
		}
		if ob := BodyFromKernel(other.Body()); ob != nil && ob.IsSleeping() {
			ob.Activate()
		}
	})
}

// Sleep puts the body to sleep in a new group of its own.
func (b *Body) Sleep() {
	b.SleepWithGroup(nil)
}

// SleepWithGroup puts the body to sleep in the same group as group, which
// must already be sleeping. Bodies in a group wake together. A nil group
// starts a new one.
//
// The body must be dynamic and added to a space. Adding the body, its shapes
// or changing any of its properties wakes it again, so set it up fully first.
func (b *Body) SleepWithGroup(group *Body) {
	assertHard(!b.IsStatic(), "static bodies cannot be put to sleep")
	assertHard(b.space != nil, "rogue bodies cannot be put to sleep")
	if group != nil {
		assertHard(group.IsSleeping(), "cannot join a non-sleeping group")
		assertHard(group.space == b.space, "cannot join a sleep group from another space")
	}

	if b.IsSleeping() {
		assertHard(group == nil || group.sleepGroup == b.sleepGroup, "body is already sleeping in another group")
		return
	}

	id := 0
	if group == nil {
		id = b.space.sleep.open()
	} else {
		id = group.sleepGroup
	}
	b.space.sleep.join(id, b)
	b.sleepGroup = id
	b.freeze()

	b.logger().Debug("body fell asleep",
		zap.Any("position", b.kernel.Position()),
		zap.Int("group", id),
		zap.Int("members", len(b.space.sleep.members(id))))
}

type sleepGroup struct {
	members []*Body
	live    bool
}

// sleepTable stores sleep groups by index. Bodies only hold their group's
// index, so membership never forms body-to-body reference cycles.
type sleepTable struct {
	groups []sleepGroup
	free   []int
}

func (t *sleepTable) open() int {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.groups[id].live = true
		return id
	}
	t.groups = append(t.groups, sleepGroup{live: true})
	return len(t.groups) - 1
}

func (t *sleepTable) join(id int, b *Body) {
	t.groups[id].members = append(t.groups[id].members, b)
}

func (t *sleepTable) members(id int) []*Body {
	return t.groups[id].members
}

// release closes the group and returns its former members.
func (t *sleepTable) release(id int) []*Body {
	g := &t.groups[id]
	members := g.members
	g.members = nil
	g.live = false
	t.free = append(t.free, id)
	return members
}

// merge moves the members of group from into group into and closes from.
func (t *sleepTable) merge(into, from int) {
	moved := t.release(from)
	for _, b := range moved {
		b.sleepGroup = into
	}
	t.groups[into].members = append(t.groups[into].members, moved...)
}

// live returns the ids of all open groups.
func (t *sleepTable) live() []int {
	var ids []int
	for id, g := range t.groups {
		if g.live {
			ids = append(ids, id)
		}
	}
	return ids
}
