package diceserver

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/danmuck/dicewire/proto"
)

func (s *Server) execute(c *conn, cmd *proto.Command) *proto.Result {
	args := cmd.Args
	switch cmd.Cmd {
	case "PING":
		if len(args) > 1 {
			return arity(cmd.Cmd)
		}
		msg := "PONG"
		if len(args) == 1 {
			msg = args[0]
		}
		return ok(&proto.PingRes{Message: msg})
	case "ECHO":
		if len(args) != 1 {
			return arity(cmd.Cmd)
		}
		return ok(&proto.EchoRes{Message: args[0]})
	case "SET":
		if len(args) < 2 {
			return arity(cmd.Cmd)
		}
		s.mu.Lock()
		s.values[args[0]] = args[1]
		s.mu.Unlock()
		s.notify(args[0])
		return ok(&proto.SetRes{})
	case "GET":
		if len(args) != 1 {
			return arity(cmd.Cmd)
		}
		return ok(s.get(args[0]))
	case "DEL":
		if len(args) == 0 {
			return arity(cmd.Cmd)
		}
		var n int64
		s.mu.Lock()
		for _, k := range args {
			if s.deleteKey(k) {
				n++
			}
		}
		s.mu.Unlock()
		for _, k := range args {
			s.notify(k)
		}
		return ok(&proto.DelRes{Count: n})
	case "EXISTS":
		if len(args) == 0 {
			return arity(cmd.Cmd)
		}
		var n int64
		s.mu.Lock()
		for _, k := range args {
			if s.exists(k) {
				n++
			}
		}
		s.mu.Unlock()
		return ok(&proto.ExistsRes{Count: n})
	case "INCR", "DECR", "INCRBY", "DECRBY":
		return s.incr(cmd)
	case "FLUSHDB":
		s.mu.Lock()
		clear(s.values)
		clear(s.hashes)
		clear(s.zsets)
		s.mu.Unlock()
		return ok(&proto.FlushDBRes{})
	case "HSET":
		if len(args) < 3 || len(args)%2 == 0 {
			return arity(cmd.Cmd)
		}
		var added int64
		s.mu.Lock()
		h := s.hashes[args[0]]
		if h == nil {
			h = make(map[string]string)
			s.hashes[args[0]] = h
		}
		for i := 1; i < len(args); i += 2 {
			if _, found := h[args[i]]; !found {
				added++
			}
			h[args[i]] = args[i+1]
		}
		s.mu.Unlock()
		s.notify(args[0])
		return ok(&proto.HSetRes{Count: added})
	case "HGET":
		if len(args) != 2 {
			return arity(cmd.Cmd)
		}
		s.mu.Lock()
		v := s.hashes[args[0]][args[1]]
		s.mu.Unlock()
		return ok(&proto.HGetRes{Value: v})
	case "HGETALL":
		if len(args) != 1 {
			return arity(cmd.Cmd)
		}
		return ok(s.hgetall(args[0]))
	case "ZADD":
		return s.zadd(cmd)
	case "ZRANGE":
		res, errRes := s.zrange(cmd)
		if errRes != nil {
			return errRes
		}
		return ok(res)
	case "ZCARD":
		if len(args) != 1 {
			return arity(cmd.Cmd)
		}
		return ok(s.zcard(args[0]))
	case "GET.WATCH", "HGETALL.WATCH", "ZRANGE.WATCH", "ZCARD.WATCH":
		return s.watch(c, cmd)
	case "UNWATCH":
		return s.unwatch(cmd)
	default:
		return fail("unknown command '%s'", cmd.Cmd)
	}
}

func (s *Server) get(key string) *proto.GetRes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &proto.GetRes{Value: s.values[key]}
}

func (s *Server) hgetall(key string) *proto.HGetAllRes {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashes[key]
	res := &proto.HGetAllRes{}
	for _, k := range slices.Sorted(maps.Keys(h)) {
		res.Elements = append(res.Elements, proto.HElement{Key: k, Value: h[k]})
	}
	return res
}

func (s *Server) zcard(key string) *proto.ZCardRes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &proto.ZCardRes{Count: int64(len(s.zsets[key]))}
}

// deleteKey requires s.mu.
func (s *Server) deleteKey(k string) bool {
	found := s.exists(k)
	delete(s.values, k)
	delete(s.hashes, k)
	delete(s.zsets, k)
	return found
}

// exists requires s.mu.
func (s *Server) exists(k string) bool {
	_, a := s.values[k]
	_, b := s.hashes[k]
	_, c := s.zsets[k]
	return a || b || c
}

func (s *Server) incr(cmd *proto.Command) *proto.Result {
	args := cmd.Args
	delta := int64(1)
	switch cmd.Cmd {
	case "INCR", "DECR":
		if len(args) != 1 {
			return arity(cmd.Cmd)
		}
	default:
		if len(args) != 2 {
			return arity(cmd.Cmd)
		}
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fail("value is not an integer or out of range")
		}
		delta = n
	}
	if strings.HasPrefix(cmd.Cmd, "DECR") {
		delta = -delta
	}

	s.mu.Lock()
	cur := int64(0)
	if raw, found := s.values[args[0]]; found {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.mu.Unlock()
			return fail("value is not an integer or out of range")
		}
		cur = n
	}
	cur += delta
	s.values[args[0]] = strconv.FormatInt(cur, 10)
	s.mu.Unlock()
	s.notify(args[0])

	switch cmd.Cmd {
	case "INCR":
		return ok(&proto.IncrRes{Value: cur})
	case "DECR":
		return ok(&proto.DecrRes{Value: cur})
	case "INCRBY":
		return ok(&proto.IncrByRes{Value: cur})
	default:
		return ok(&proto.DecrByRes{Value: cur})
	}
}

var zaddFlags = map[string]bool{"NX": true, "XX": true, "CH": true, "INCR": true}

func (s *Server) zadd(cmd *proto.Command) *proto.Result {
	if len(cmd.Args) < 3 {
		return arity(cmd.Cmd)
	}
	key, rest := cmd.Args[0], cmd.Args[1:]
	for len(rest) > 0 && zaddFlags[rest[0]] {
		rest = rest[1:]
	}
	if len(rest) == 0 || len(rest)%2 != 0 {
		return arity(cmd.Cmd)
	}

	var added int64
	s.mu.Lock()
	z := s.zsets[key]
	if z == nil {
		z = make(map[string]int64)
		s.zsets[key] = z
	}
	for i := 0; i < len(rest); i += 2 {
		score, err := strconv.ParseInt(rest[i], 10, 64)
		if err != nil {
			s.mu.Unlock()
			return fail("value is not a valid integer")
		}
		if _, found := z[rest[i+1]]; !found {
			added++
		}
		z[rest[i+1]] = score
	}
	s.mu.Unlock()
	s.notify(key)
	return ok(&proto.ZAddRes{Count: added})
}

// zrange orders by ascending score, then member. Rank is the 0-based position in
// the full ordering.
func (s *Server) zrange(cmd *proto.Command) (*proto.ZRangeRes, *proto.Result) {
	args := cmd.Args
	if len(args) < 3 {
		return nil, arity(cmd.Cmd)
	}
	start, err1 := strconv.ParseInt(args[1], 10, 64)
	stop, err2 := strconv.ParseInt(args[2], 10, 64)
	if err1 != nil || err2 != nil {
		return nil, fail("value is not an integer or out of range")
	}
	byScore := len(args) > 3 && strings.EqualFold(args[3], "BYSCORE")

	s.mu.Lock()
	z := s.zsets[args[0]]
	all := make([]proto.ZElement, 0, len(z))
	for m, sc := range z {
		all = append(all, proto.ZElement{Score: sc, Member: m})
	}
	s.mu.Unlock()

	slices.SortFunc(all, func(a, b proto.ZElement) int {
		return cmp.Or(cmp.Compare(a.Score, b.Score), cmp.Compare(a.Member, b.Member))
	})
	for i := range all {
		all[i].Rank = int64(i)
	}

	res := &proto.ZRangeRes{}
	if byScore {
		for _, e := range all {
			if e.Score >= start && e.Score <= stop {
				res.Elements = append(res.Elements, e)
			}
		}
		return res, nil
	}

	n := int64(len(all))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	start = max(start, 0)
	stop = min(stop, n-1)
	if start <= stop {
		res.Elements = slices.Clone(all[start : stop+1])
	}
	return res, nil
}

func watchKey(cmd *proto.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[0]
}

func (s *Server) watch(c *conn, cmd *proto.Command) *proto.Result {
	if len(cmd.Args) == 0 {
		return arity(cmd.Cmd)
	}
	w := &watcher{conn: c, cmd: proto.Command{Cmd: cmd.Cmd, Args: slices.Clone(cmd.Args)}, fingerprint: fingerprint(cmd)}
	first := s.snapshot(w)
	if first.Status == proto.StatusERR {
		return first
	}

	s.mu.Lock()
	s.watchers[w.fingerprint] = append(s.watchers[w.fingerprint], w)
	s.mu.Unlock()
	c.pending = w

	var ack proto.Response
	switch cmd.Cmd {
	case "GET.WATCH":
		ack = &proto.GetWatchRes{}
	case "HGETALL.WATCH":
		ack = &proto.HGetAllWatchRes{}
	case "ZRANGE.WATCH":
		ack = &proto.ZRangeWatchRes{}
	default:
		ack = &proto.ZCardWatchRes{}
	}
	res := ok(ack)
	res.Fingerprint64 = w.fingerprint
	return res
}

func (s *Server) unwatch(cmd *proto.Command) *proto.Result {
	if len(cmd.Args) != 1 {
		return arity(cmd.Cmd)
	}
	fp, err := strconv.ParseUint(cmd.Args[0], 10, 64)
	if err != nil {
		return fail("invalid fingerprint '%s'", cmd.Args[0])
	}
	s.mu.Lock()
	delete(s.watchers, fp)
	s.mu.Unlock()
	return ok(&proto.UnwatchRes{})
}

// snapshot renders a watcher's current value in the base command's slot.
func (s *Server) snapshot(w *watcher) *proto.Result {
	var res *proto.Result
	key := watchKey(&w.cmd)
	switch w.cmd.Cmd {
	case "GET.WATCH":
		res = ok(s.get(key))
	case "HGETALL.WATCH":
		res = ok(s.hgetall(key))
	case "ZRANGE.WATCH":
		base := proto.Command{Cmd: "ZRANGE", Args: w.cmd.Args}
		r, errRes := s.zrange(&base)
		if errRes != nil {
			return errRes
		}
		res = ok(r)
	default:
		res = ok(s.zcard(key))
	}
	res.Fingerprint64 = w.fingerprint
	return res
}

// notify pushes fresh snapshots to every watcher of key.
func (s *Server) notify(key string) {
	s.mu.Lock()
	var targets []*watcher
	for _, ws := range s.watchers {
		for _, w := range ws {
			if watchKey(&w.cmd) == key {
				targets = append(targets, w)
			}
		}
	}
	s.mu.Unlock()

	for _, w := range targets {
		if err := w.conn.send(s.snapshot(w)); err != nil {
			s.log.Debug().Err(err).Uint64("fingerprint", w.fingerprint).Msg("push failed")
		}
	}
}
