package match

import "sort"

// Merge combines two snapshots of the same session into one canonical
// snapshot. The side carrying the later events is treated as the most recent
// fetch: its metadata and latest event id win, while roster entries already
// present on the other side are kept as they are. The result never contains
// two events with the same id and shares no memory with either input.
func Merge(left, right Snapshot) Snapshot {
	if len(left.Events) == 0 {
		return right.Clone()
	}
	if len(right.Events) == 0 {
		return left.Clone()
	}

	base, secondary := left, right
	if right.Events[0].ID < left.LastEventID() && right.LastEventID() < left.LastEventID() {
		base, secondary = right, left
	}

	out := base.Clone()

	known := make(map[int64]struct{}, len(out.Users))
	for _, u := range out.Users {
		known[u.ID] = struct{}{}
	}
	for _, u := range secondary.Users {
		if _, ok := known[u.ID]; ok {
			continue
		}
		known[u.ID] = struct{}{}
		out.Users = append(out.Users, u)
	}

	seen := make(map[int64]struct{}, len(out.Events))
	for _, e := range out.Events {
		seen[e.ID] = struct{}{}
	}
	for _, e := range secondary.Events {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out.Events = append(out.Events, e.Clone())
	}
	sort.SliceStable(out.Events, func(i, j int) bool { return out.Events[i].ID < out.Events[j].ID })

	out.Match.Name = secondary.Match.Name
	out.Match.EndTime = cloneTime(secondary.Match.EndTime)
	out.LatestEventID = secondary.LatestEventID
	out.CurrentGameID = cloneInt64(secondary.CurrentGameID)

	return TruncateOngoing(out)
}

// Fold merges every snapshot in order into one.
func Fold(snapshots ...Snapshot) Snapshot {
	var acc Snapshot
	for _, s := range snapshots {
		acc = Merge(acc, s)
	}
	return acc
}

// TruncateOngoing drops the game currently being played, and everything
// after it, from a session that has not ended yet. A game that straddles a
// fetch boundary is then fetched again in full on the next pass instead of
// being counted half-finished. LatestEventID is recomputed from the events
// that remain.
func TruncateOngoing(s Snapshot) Snapshot {
	if s.Match.EndTime != nil || s.CurrentGameID == nil {
		return s
	}

	cut := -1
	for i, e := range s.Events {
		if e.Game != nil && e.Game.ID == *s.CurrentGameID && e.Game.EndTime == nil {
			cut = i
			break
		}
	}
	if cut < 0 {
		return s
	}

	startID := s.Events[cut].ID
	kept := s.Events[:0:0]
	for _, e := range s.Events {
		if e.ID < startID {
			kept = append(kept, e)
		}
	}
	s.Events = kept
	s.LatestEventID = s.LastEventID()
	return s
}
