package proto

import (
	"encoding/binary"
	"fmt"
)

// Frame layout, little-endian. Every message is exactly FrameSize bytes;
// there is no length prefix because the size is constant on both sides.
//
//	offset 0   uint32  event type
//	offset 4   int32   sender id
//	offset 8   int64   unix timestamp, seconds
//	offset 16  payload, zero padded to PayloadSize
const (
	headerSize  = 16
	PayloadSize = 504
	FrameSize   = headerSize + PayloadSize
)

const (
	messageLen = 64
	reasonLen  = 64
	errorLen   = 128
)

// EncodeEvent serializes an event into one fixed-size frame. The payload
// pointer matching ev.Type must be set; other pointers are ignored.
func EncodeEvent(ev Event) ([]byte, error) {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(ev.Type))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ev.SenderID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(ev.Timestamp))

	w := fieldWriter{buf: buf[headerSize:]}
	switch ev.Type {
	case EventJoinRequest:
		p := ev.Join
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.str(p.Name, MaxNameLen)
	case EventJoinAck:
		p := ev.JoinAck
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.PlayerID)
		w.flag(p.Success)
		w.i32(p.HostPlayerID)
		w.flag(p.IsHost)
		w.str(p.Message, messageLen)
	case EventPlayerJoined, EventPlayerLeft:
		p := ev.Lifecycle
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.PlayerID)
		w.str(p.Name, MaxNameLen)
		w.i32(p.ReasonCode)
	case EventHostUpdated:
		p := ev.Host
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.HostPlayerID)
		w.str(p.HostName, MaxNameLen)
	case EventMatchStartRequest:
		// No payload beyond the header; authority comes from the sender.
	case EventMatchStart:
		p := ev.MatchStart
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.snapshot(&p.View)
	case EventMatchStop:
		p := ev.MatchStop
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.ReasonCode)
		w.str(p.Reason, reasonLen)
	case EventTurnStarted:
		p := ev.Turn
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.CurrentPlayerID)
		w.i32(p.NextPlayerID)
		w.i32(p.TurnNumber)
		w.i32(p.MsPerTurn)
		w.flag(p.IsMatchStart)
		w.u32(p.ValidActions)
		w.action(&p.LastAction)
		w.snapshot(&p.View)
	case EventUserAction:
		p := ev.Action
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.action(p)
	case EventStarThresholdReached:
		p := ev.Threshold
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.PlayerID)
		w.i32(p.Threshold)
		w.i32(p.CurrentTotal)
	case EventDefenseFull:
		p := ev.Defense
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.DefenderID)
		w.flag(p.WasFullDefense)
		w.flag(p.StarsReset)
	case EventGameOver:
		p := ev.GameOver
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.WinnerID)
		w.str(p.Reason, reasonLen)
	case EventError:
		p := ev.Error
		if p == nil {
			return nil, missingPayload(ev.Type)
		}
		w.i32(p.Code)
		w.str(p.Message, errorLen)
	default:
		return nil, fmt.Errorf("proto: cannot encode event type %d", ev.Type)
	}
	if w.err != nil {
		return nil, w.err
	}
	return buf, nil
}

// DecodeEvent parses one fixed-size frame. An unrecognized type decodes to
// an Event with no payload so the dispatcher can report it without killing
// the connection.
func DecodeEvent(buf []byte) (Event, error) {
	if len(buf) != FrameSize {
		return Event{}, fmt.Errorf("proto: frame must be %d bytes, got %d", FrameSize, len(buf))
	}

	ev := Event{
		Type:      EventType(binary.LittleEndian.Uint32(buf[0:4])),
		SenderID:  int32(binary.LittleEndian.Uint32(buf[4:8])),
		Timestamp: int64(binary.LittleEndian.Uint64(buf[8:16])),
	}

	r := fieldReader{buf: buf[headerSize:]}
	switch ev.Type {
	case EventJoinRequest:
		ev.Join = &JoinRequest{Name: r.str(MaxNameLen)}
	case EventJoinAck:
		ev.JoinAck = &JoinAck{
			PlayerID:     r.i32(),
			Success:      r.flag(),
			HostPlayerID: r.i32(),
			IsHost:       r.flag(),
			Message:      r.str(messageLen),
		}
	case EventPlayerJoined, EventPlayerLeft:
		ev.Lifecycle = &PlayerLifecycle{
			PlayerID:   r.i32(),
			Name:       r.str(MaxNameLen),
			ReasonCode: r.i32(),
		}
	case EventHostUpdated:
		ev.Host = &HostUpdate{
			HostPlayerID: r.i32(),
			HostName:     r.str(MaxNameLen),
		}
	case EventMatchStartRequest:
	case EventMatchStart:
		p := &MatchStart{}
		r.snapshot(&p.View)
		ev.MatchStart = p
	case EventMatchStop:
		ev.MatchStop = &MatchStop{
			ReasonCode: r.i32(),
			Reason:     r.str(reasonLen),
		}
	case EventTurnStarted:
		p := &TurnInfo{
			CurrentPlayerID: r.i32(),
			NextPlayerID:    r.i32(),
			TurnNumber:      r.i32(),
			MsPerTurn:       r.i32(),
			IsMatchStart:    r.flag(),
			ValidActions:    r.u32(),
		}
		r.action(&p.LastAction)
		r.snapshot(&p.View)
		ev.Turn = p
	case EventUserAction:
		p := &UserAction{}
		r.action(p)
		ev.Action = p
	case EventStarThresholdReached:
		ev.Threshold = &Threshold{
			PlayerID:     r.i32(),
			Threshold:    r.i32(),
			CurrentTotal: r.i32(),
		}
	case EventDefenseFull:
		ev.Defense = &DefenseFull{
			DefenderID:     r.i32(),
			WasFullDefense: r.flag(),
			StarsReset:     r.flag(),
		}
	case EventGameOver:
		ev.GameOver = &GameOver{
			WinnerID: r.i32(),
			Reason:   r.str(reasonLen),
		}
	case EventError:
		ev.Error = &ErrorInfo{
			Code:    r.i32(),
			Message: r.str(errorLen),
		}
	default:
		ev.Type = EventType(binary.LittleEndian.Uint32(buf[0:4]))
	}
	if r.err != nil {
		return Event{}, r.err
	}
	return ev, nil
}

func missingPayload(t EventType) error {
	return fmt.Errorf("proto: event type %s has no payload set", t)
}

// fieldWriter lays fields into the payload region sequentially. Offsets are
// implicit in the field order, which must match fieldReader exactly.
type fieldWriter struct {
	buf []byte
	off int
	err error
}

func (w *fieldWriter) ensure(n int) bool {
	if w.err != nil {
		return false
	}
	if w.off+n > len(w.buf) {
		w.err = fmt.Errorf("proto: payload overflow at offset %d", w.off)
		return false
	}
	return true
}

func (w *fieldWriter) u32(v uint32) {
	if !w.ensure(4) {
		return
	}
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *fieldWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *fieldWriter) flag(b bool) {
	if b {
		w.u32(1)
	} else {
		w.u32(0)
	}
}

// str writes a NUL-padded string field of exactly n bytes, truncating to
// n-1 so the field always terminates.
func (w *fieldWriter) str(s string, n int) {
	if !w.ensure(n) {
		return
	}
	raw := []byte(s)
	if len(raw) > n-1 {
		raw = raw[:n-1]
	}
	copy(w.buf[w.off:], raw)
	w.off += n
}

func (w *fieldWriter) action(a *UserAction) {
	w.i32(a.PlayerID)
	w.i32(int32(a.Action))
	w.i32(a.TargetPlayerID)
	w.i32(a.Value)
	w.i32(a.Metadata)
}

func (w *fieldWriter) planet(p *PlanetStats) {
	w.i32(p.Level)
	w.i32(p.MaxHealth)
	w.i32(p.CurrentHealth)
	w.i32(p.BaseIncome)
	w.i32(p.UpgradeCost)
}

func (w *fieldWriter) ship(s *ShipStats) {
	w.i32(s.Level)
	w.i32(s.MaxHealth)
	w.i32(s.CurrentHealth)
	w.i32(s.BaseDamage)
	w.i32(s.UpgradeCost)
}

func (w *fieldWriter) playerInfo(p *PlayerInfo) {
	w.i32(p.PlayerID)
	w.str(p.Name, MaxNameLen)
	w.flag(p.Active)
	w.flag(p.Connected)
	w.i32(p.Stars)
	w.i32(p.DefensePosture)
	w.flag(p.CrossedThreshold)
	w.planet(&p.Planet)
	w.ship(&p.Ship)
}

func (w *fieldWriter) snapshot(s *PlayerSnapshot) {
	w.i32(s.ViewerID)
	w.playerInfo(&s.Self)
	for i := range s.Entries {
		e := &s.Entries[i]
		w.i32(e.PlayerID)
		w.i32(e.PlanetLevel)
		w.i32(e.ShipLevel)
		w.i32(e.ShipBaseDamage)
		w.flag(e.ShowStars)
		w.i32(e.Stars)
		w.i32(e.CoarsePlanetHealth)
		w.i32(e.CoarseShipHealth)
	}
}

type fieldReader struct {
	buf []byte
	off int
	err error
}

func (r *fieldReader) ensure(n int) bool {
	if r.err != nil {
		return false
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("proto: payload underflow at offset %d", r.off)
		return false
	}
	return true
}

func (r *fieldReader) u32() uint32 {
	if !r.ensure(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *fieldReader) i32() int32 { return int32(r.u32()) }

func (r *fieldReader) flag() bool { return r.u32() != 0 }

func (r *fieldReader) str(n int) string {
	if !r.ensure(n) {
		return ""
	}
	raw := r.buf[r.off : r.off+n]
	r.off += n
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func (r *fieldReader) action(a *UserAction) {
	a.PlayerID = r.i32()
	a.Action = ActionType(r.i32())
	a.TargetPlayerID = r.i32()
	a.Value = r.i32()
	a.Metadata = r.i32()
}

func (r *fieldReader) planet(p *PlanetStats) {
	p.Level = r.i32()
	p.MaxHealth = r.i32()
	p.CurrentHealth = r.i32()
	p.BaseIncome = r.i32()
	p.UpgradeCost = r.i32()
}

func (r *fieldReader) ship(s *ShipStats) {
	s.Level = r.i32()
	s.MaxHealth = r.i32()
	s.CurrentHealth = r.i32()
	s.BaseDamage = r.i32()
	s.UpgradeCost = r.i32()
}

func (r *fieldReader) playerInfo(p *PlayerInfo) {
	p.PlayerID = r.i32()
	p.Name = r.str(MaxNameLen)
	p.Active = r.flag()
	p.Connected = r.flag()
	p.Stars = r.i32()
	p.DefensePosture = r.i32()
	p.CrossedThreshold = r.flag()
	r.planet(&p.Planet)
	r.ship(&p.Ship)
}

func (r *fieldReader) snapshot(s *PlayerSnapshot) {
	s.ViewerID = r.i32()
	r.playerInfo(&s.Self)
	for i := range s.Entries {
		e := &s.Entries[i]
		e.PlayerID = r.i32()
		e.PlanetLevel = r.i32()
		e.ShipLevel = r.i32()
		e.ShipBaseDamage = r.i32()
		e.ShowStars = r.flag()
		e.Stars = r.i32()
		e.CoarsePlanetHealth = r.i32()
		e.CoarseShipHealth = r.i32()
	}
}
