package app

import (
	"encoding/json"
	"errors"
	"testing"

	"foldback/internal/core"
	"foldback/internal/domain"
)

type fakeConn struct {
	frames []core.Frame
	fail   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	if c.fail {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func newBroker() *Broker {
	return &Broker{
		Registry: NewRegistry(),
		Rooms:    NewRoomStore(),
		Policy:   SimplePolicy{},
	}
}

func connect(t *testing.T, b *Broker, sid core.SessionID) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	b.Connect(sid, core.NewMemberSession(domain.NewMember(""), conn), nil)
	return conn
}

func join(t *testing.T, b *Broker, sid core.SessionID, room domain.RoomKey, role domain.Role) *fakeConn {
	t.Helper()
	conn := connect(t, b, sid)
	b.OnAction(sid, domain.JoinRoom{Room: room, Role: role})
	return conn
}

func envelopeAt(t *testing.T, conn *fakeConn, i int) Envelope {
	t.Helper()
	if len(conn.frames) <= i {
		t.Fatalf("expected at least %d frames, got %d", i+1, len(conn.frames))
	}
	var env Envelope
	if err := json.Unmarshal(conn.frames[i], &env); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	return env
}

func levelsAt(t *testing.T, conn *fakeConn, i int) domain.Levels {
	t.Helper()
	env := envelopeAt(t, conn, i)
	if env.Event != EvtStateLevels {
		t.Fatalf("expected %s frame, got %s", EvtStateLevels, env.Event)
	}
	var levels domain.Levels
	if err := json.Unmarshal(env.Data, &levels); err != nil {
		t.Fatalf("failed to decode levels: %v", err)
	}
	return levels
}

func messageAt(t *testing.T, conn *fakeConn, i int) domain.Message {
	t.Helper()
	env := envelopeAt(t, conn, i)
	if env.Event != EvtLogAppend {
		t.Fatalf("expected %s frame, got %s", EvtLogAppend, env.Event)
	}
	var msg domain.Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	return msg
}

func TestJoinUnicastsSnapshotToJoinerOnly(t *testing.T) {
	b := newBroker()
	first := join(t, b, "s1", "main", domain.RoleRequester)
	second := join(t, b, "s2", "main", domain.RoleOperator)

	if len(first.frames) != 1 {
		t.Fatalf("expected first joiner to hold only its own snapshot, got %d frames", len(first.frames))
	}
	levels := levelsAt(t, second, 0)
	if levels["guitar"] != domain.DefaultLevel {
		t.Fatalf("expected default snapshot on join, got %v", levels)
	}
}

func TestJoinWithBlankRoomDefaultsToMain(t *testing.T) {
	b := newBroker()
	conn := join(t, b, "s1", "", domain.RoleRequester)
	join(t, b, "op", "main", domain.RoleOperator)

	b.OnAction("op", domain.OperatorAdjust{Room: "main", Instrument: "guitar", Delta: -1})
	// snapshot + state + log
	if len(conn.frames) != 3 {
		t.Fatalf("expected the blank-room joiner to live in %q, got %d frames", domain.DefaultRoomKey, len(conn.frames))
	}
}

func TestJoinWithUnknownRoleDropped(t *testing.T) {
	b := newBroker()
	conn := connect(t, b, "s1")
	b.OnAction("s1", domain.JoinRoom{Room: "main", Role: "Roadie"})
	if len(conn.frames) != 0 {
		t.Fatalf("expected no snapshot for a dropped join, got %d frames", len(conn.frames))
	}
	if _, _, ok := b.Registry.RoomOf("s1"); ok {
		t.Fatalf("expected no room membership for a dropped join")
	}
}

func TestRequestLevelsIsUnicast(t *testing.T) {
	b := newBroker()
	asker := join(t, b, "s1", "main", domain.RoleRequester)
	other := join(t, b, "s2", "main", domain.RoleOperator)

	b.OnAction("s2", domain.OperatorAdjust{Room: "main", Instrument: "bass", Delta: +1})
	askerBase, otherBase := len(asker.frames), len(other.frames)

	b.OnAction("s1", domain.RequestLevels{Room: "main"})
	if len(asker.frames) != askerBase+1 {
		t.Fatalf("expected one snapshot for the requester, got %d new frames", len(asker.frames)-askerBase)
	}
	if len(other.frames) != otherBase {
		t.Fatalf("requestLevels must never broadcast, other member got %d new frames", len(other.frames)-otherBase)
	}
	levels := levelsAt(t, asker, askerBase)
	if levels["bass"] != domain.DefaultLevel+1 {
		t.Fatalf("expected resync to carry current state, got %v", levels)
	}
}

func TestAdjustBroadcastsStateThenLogToAll(t *testing.T) {
	b := newBroker()
	conns := map[core.SessionID]*fakeConn{
		"s1": join(t, b, "s1", "main", domain.RoleOperator),
		"s2": join(t, b, "s2", "main", domain.RoleRequester),
		"s3": join(t, b, "s3", "main", domain.RoleRequester),
	}

	b.OnAction("s1", domain.OperatorAdjust{Room: "main", Instrument: "guitar", Delta: -1})

	for sid, conn := range conns {
		// frame 0 is the join snapshot
		levels := levelsAt(t, conn, 1)
		if levels["guitar"] != domain.DefaultLevel-1 {
			t.Fatalf("%s: expected broadcast state guitar=%d, got %v", sid, domain.DefaultLevel-1, levels)
		}
		msg := messageAt(t, conn, 2)
		if msg.Origin != "s1" {
			t.Fatalf("%s: expected origin session id s1, got %q", sid, msg.Origin)
		}
	}

	// Identical payloads everywhere, originator included.
	for _, conn := range conns {
		if string(conn.frames[1]) != string(conns["s1"].frames[1]) ||
			string(conn.frames[2]) != string(conns["s1"].frames[2]) {
			t.Fatalf("broadcast payloads differ between members")
		}
	}
}

func TestRequesterActionBroadcastsLogOnly(t *testing.T) {
	b := newBroker()
	conn := join(t, b, "s1", "main", domain.RoleRequester)

	b.OnAction("s1", domain.RequesterAction{Room: "main", Instrument: "vocals", Kind: domain.KindLowerReq})
	if len(conn.frames) != 2 {
		t.Fatalf("expected join snapshot plus one log frame, got %d", len(conn.frames))
	}
	msg := messageAt(t, conn, 1)
	if msg.From != domain.RoleRequester {
		t.Fatalf("expected requester role tag, got %q", msg.From)
	}
}

func TestResetBroadcastsStateOnly(t *testing.T) {
	b := newBroker()
	conn := join(t, b, "s1", "main", domain.RoleOperator)
	b.OnAction("s1", domain.OperatorAdjust{Room: "main", Instrument: "drums", Delta: +1})
	base := len(conn.frames)

	b.OnAction("s1", domain.ResetLevels{Room: "main"})
	if len(conn.frames) != base+1 {
		t.Fatalf("expected exactly one frame for reset, got %d new", len(conn.frames)-base)
	}
	levels := levelsAt(t, conn, base)
	for k, v := range levels {
		if v != domain.DefaultLevel {
			t.Fatalf("expected %q reset to %d, got %d", k, domain.DefaultLevel, v)
		}
	}
}

func TestRoomIsolation(t *testing.T) {
	b := newBroker()
	inX := join(t, b, "sx", "roomX", domain.RoleOperator)
	inY := join(t, b, "sy", "roomY", domain.RoleRequester)

	b.OnAction("sx", domain.OperatorAdjust{Room: "roomX", Instrument: "guitar", Delta: -1})

	if len(inX.frames) != 3 {
		t.Fatalf("expected roomX member to see the action, got %d frames", len(inX.frames))
	}
	if len(inY.frames) != 1 {
		t.Fatalf("roomY member must only hold its join snapshot, got %d frames", len(inY.frames))
	}
	if b.Rooms.GetOrCreate("roomY").Snapshot()["guitar"] != domain.DefaultLevel {
		t.Fatalf("action in roomX mutated roomY")
	}
}

func TestRejoinMovesSessionBetweenRooms(t *testing.T) {
	b := newBroker()
	mover := join(t, b, "s1", "roomX", domain.RoleRequester)
	join(t, b, "op", "roomX", domain.RoleOperator)

	b.OnAction("s1", domain.JoinRoom{Room: "roomY", Role: domain.RoleRequester})
	base := len(mover.frames)

	b.OnAction("op", domain.OperatorAdjust{Room: "roomX", Instrument: "keys", Delta: +1})
	if len(mover.frames) != base {
		t.Fatalf("session rejoined to roomY must not receive roomX broadcasts")
	}
	if room, _, ok := b.Registry.RoomOf("s1"); !ok || room != "roomY" {
		t.Fatalf("expected registry to record roomY, got %q", room)
	}
}

func TestDisconnectIsSilent(t *testing.T) {
	b := newBroker()
	stayer := join(t, b, "s1", "main", domain.RoleOperator)
	join(t, b, "s2", "main", domain.RoleRequester)
	base := len(stayer.frames)

	b.OnDisconnect("s2")
	if len(stayer.frames) != base {
		t.Fatalf("disconnect must not broadcast, got %d new frames", len(stayer.frames)-base)
	}
	if n := b.Rooms.GetOrCreate("main").MemberCount(); n != 1 {
		t.Fatalf("expected 1 member after disconnect, got %d", n)
	}
	if _, ok := b.Registry.GetSession("s2"); ok {
		t.Fatalf("expected session unbound after disconnect")
	}
}

func TestSiblingConnectionsDisconnectIndependently(t *testing.T) {
	b := newBroker()
	// Two tabs of one browser: separate connections, separate session ids.
	join(t, b, "conn-1", "main", domain.RoleRequester)
	second := join(t, b, "conn-2", "main", domain.RoleOperator)

	b.OnDisconnect("conn-1")
	if n := b.Rooms.GetOrCreate("main").MemberCount(); n != 1 {
		t.Fatalf("expected the second tab to stay a member, got %d", n)
	}

	b.OnAction("conn-2", domain.OperatorAdjust{Room: "main", Instrument: "guitar", Delta: -1})
	levels := levelsAt(t, second, 1)
	if levels["guitar"] != domain.DefaultLevel-1 {
		t.Fatalf("expected the surviving tab to keep receiving broadcasts, got %v", levels)
	}
	if msg := messageAt(t, second, 2); msg.Origin != "conn-2" {
		t.Fatalf("expected origin conn-2, got %q", msg.Origin)
	}
}

func TestBackpressureKicksSlowMember(t *testing.T) {
	b := newBroker()
	join(t, b, "s1", "main", domain.RoleOperator)

	slow := &fakeConn{fail: true}
	b.Connect("slow", core.NewMemberSession(domain.NewMember(""), slow), nil)
	b.Registry.SetRoom("slow", "main", domain.RoleRequester)
	b.Rooms.GetOrCreate("main").AddMember("slow", core.NewMemberSession(domain.NewMember(domain.RoleRequester), slow))

	b.OnAction("s1", domain.OperatorAdjust{Room: "main", Instrument: "guitar", Delta: -1})

	if n := b.Rooms.GetOrCreate("main").MemberCount(); n != 1 {
		t.Fatalf("expected slow member kicked, got %d members", n)
	}
	if _, _, ok := b.Registry.RoomOf("slow"); ok {
		t.Fatalf("expected slow member's room association cleared")
	}
}

func TestActionFromUnjoinedSessionStillApplies(t *testing.T) {
	b := newBroker()
	member := join(t, b, "s1", "main", domain.RoleRequester)
	connect(t, b, "lurker")

	b.OnAction("lurker", domain.OperatorAdjust{Room: "main", Instrument: "bass", Delta: -1})

	levels := levelsAt(t, member, 1)
	if levels["bass"] != domain.DefaultLevel-1 {
		t.Fatalf("expected the named room to mutate, got %v", levels)
	}
	msg := messageAt(t, member, 2)
	if msg.Origin != "lurker" {
		t.Fatalf("expected origin stamp from the sender, got %q", msg.Origin)
	}
}
