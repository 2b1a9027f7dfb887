package registry

import (
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sortedMembers(r *Registry, roomKey string) []string {
	m := r.Members(roomKey)
	sort.Strings(m)
	return m
}

func TestJoinIsIdempotent(t *testing.T) {
	r := New(nil)

	r.Join("room1", "conn-a")
	r.Join("room1", "conn-a")
	r.Join("room1", "conn-b")

	got := sortedMembers(r, "room1")
	want := []string{"conn-a", "conn-b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("members=%v, want %v", got, want)
	}
}

func TestLeaveKeepsEmptyRoomEntry(t *testing.T) {
	r := New(nil)

	r.Join("room1", "conn-a")
	r.Leave("room1", "conn-a")

	if got := r.Members("room1"); got != nil {
		t.Fatalf("members=%v, want empty", got)
	}
	if r.RoomCount() != 1 {
		t.Fatalf("RoomCount=%d, want 1 (empty rooms persist)", r.RoomCount())
	}

	// Leaving an unknown room or a room the connection never joined is a no-op.
	r.Leave("room1", "conn-a")
	r.Leave("nope", "conn-a")
}

func TestRemoveConnectionEverywhere(t *testing.T) {
	r := New(nil)

	r.Join("alpha", "conn-a")
	r.Join("beta", "conn-a")
	r.Join("gamma", "conn-a")
	r.Join("beta", "conn-b")

	removed := r.RemoveConnectionEverywhere("conn-a")
	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(removed, want) {
		t.Fatalf("removed=%v, want join order %v", removed, want)
	}

	for _, roomKey := range want {
		for _, id := range r.Members(roomKey) {
			if id == "conn-a" {
				t.Fatalf("conn-a still member of %s", roomKey)
			}
		}
	}
	if got := r.Members("beta"); !reflect.DeepEqual(got, []string{"conn-b"}) {
		t.Fatalf("beta members=%v", got)
	}
	if got := r.Rooms("conn-a"); got != nil {
		t.Fatalf("Rooms(conn-a)=%v, want nil", got)
	}

	if again := r.RemoveConnectionEverywhere("conn-a"); again != nil {
		t.Fatalf("second removal returned %v", again)
	}
}

func TestRoomsTracksJoinOrder(t *testing.T) {
	r := New(nil)

	r.Join("z", "c")
	r.Join("a", "c")
	r.Join("m", "c")
	r.Leave("a", "c")

	if got := r.Rooms("c"); !reflect.DeepEqual(got, []string{"z", "m"}) {
		t.Fatalf("Rooms=%v", got)
	}
}

func TestSweepEvictsOnlyStaleEmptyRooms(t *testing.T) {
	clk := &fakeClock{now: time.Unix(5000, 0)}
	r := New(clk)

	r.Join("stale", "conn-a")
	r.Join("busy", "conn-b")
	r.Leave("stale", "conn-a")

	clk.advance(30 * time.Second)
	r.Join("fresh", "conn-c")
	r.Leave("fresh", "conn-c")

	clk.advance(45 * time.Second)

	// "stale" has been empty 75s, "fresh" only 45s, "busy" is occupied.
	if n := r.Sweep(time.Minute); n != 1 {
		t.Fatalf("Sweep removed %d rooms, want 1", n)
	}
	if r.RoomCount() != 2 {
		t.Fatalf("RoomCount=%d, want 2", r.RoomCount())
	}

	// Rejoining clears the empty timer.
	r.Join("fresh", "conn-d")
	clk.advance(time.Hour)
	if n := r.Sweep(time.Minute); n != 0 {
		t.Fatalf("Sweep removed %d rooms, want 0", n)
	}
}

func TestSweepDisabled(t *testing.T) {
	clk := &fakeClock{now: time.Unix(5000, 0)}
	r := New(clk)

	r.Join("room1", "conn-a")
	r.Leave("room1", "conn-a")
	clk.advance(time.Hour)

	if n := r.Sweep(0); n != 0 {
		t.Fatalf("Sweep(0) removed %d rooms", n)
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			for j := 0; j < 200; j++ {
				r.Join("shared", id)
				r.Leave("shared", id)
			}
		}(i)
	}
	wg.Wait()

	if got := r.Members("shared"); got != nil {
		t.Fatalf("members=%v, want empty after balanced join/leave", got)
	}
}
