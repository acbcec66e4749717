package command

import (
	"strconv"

	"github.com/danmuck/dicewire/proto"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func Handshake(clientID string, ch Channel) Command[*proto.HandshakeRes] {
	return Command[*proto.HandshakeRes]{newCall(OpHandshake, 2, clientID, string(ch))}
}

// Ping sends PING with an optional message.
func Ping(message ...string) Command[*proto.PingRes] {
	return Command[*proto.PingRes]{newCall(OpPing, 0, message...)}
}

func Echo(message string) Command[*proto.EchoRes] {
	return Command[*proto.EchoRes]{newCall(OpEcho, 1, message)}
}

func Type(key string) Command[*proto.TypeRes] {
	return Command[*proto.TypeRes]{newCall(OpType, 1, key)}
}

func Exists(keys ...string) Command[*proto.ExistsRes] {
	return Command[*proto.ExistsRes]{newCall(OpExists, 1, keys...)}
}

func Keys(pattern string) Command[*proto.KeysRes] {
	return Command[*proto.KeysRes]{newCall(OpKeys, 1, pattern)}
}

func Get(key string) Command[*proto.GetRes] {
	return Command[*proto.GetRes]{newCall(OpGet, 1, key)}
}

func Set(key, value string) Command[*proto.SetRes] {
	return SetWith(key, value, SetOptions{})
}

// SetWith appends the condition, then the expiry, then KEEPTTL.
func SetWith(key, value string, opts SetOptions) Command[*proto.SetRes] {
	args := []string{key, value}
	if opts.Condition != "" {
		args = append(args, string(opts.Condition))
	}
	args = opts.Expiry.append(args)
	if opts.KeepTTL {
		args = append(args, "KEEPTTL")
	}
	return Command[*proto.SetRes]{newCall(OpSet, 2, args...)}
}

func Del(keys ...string) Command[*proto.DelRes] {
	return Command[*proto.DelRes]{newCall(OpDel, 1, keys...)}
}

func GetDel(key string) Command[*proto.GetDelRes] {
	return Command[*proto.GetDelRes]{newCall(OpGetDel, 1, key)}
}

// GetEx reads key and optionally resets its expiry.
func GetEx(key string, exp ...Expiry) Command[*proto.GetExRes] {
	args := []string{key}
	for _, e := range exp {
		args = e.append(args)
	}
	return Command[*proto.GetExRes]{newCall(OpGetEx, 1, args...)}
}

func GetSet(key, value string) Command[*proto.GetSetRes] {
	return Command[*proto.GetSetRes]{newCall(OpGetSet, 2, key, value)}
}

func Incr(key string) Command[*proto.IncrRes] {
	return Command[*proto.IncrRes]{newCall(OpIncr, 1, key)}
}

func Decr(key string) Command[*proto.DecrRes] {
	return Command[*proto.DecrRes]{newCall(OpDecr, 1, key)}
}

func IncrBy(key string, delta int64) Command[*proto.IncrByRes] {
	return Command[*proto.IncrByRes]{newCall(OpIncrBy, 2, key, itoa(delta))}
}

func DecrBy(key string, delta int64) Command[*proto.DecrByRes] {
	return Command[*proto.DecrByRes]{newCall(OpDecrBy, 2, key, itoa(delta))}
}

func FlushDB() Command[*proto.FlushDBRes] {
	return Command[*proto.FlushDBRes]{newCall(OpFlushDB, 0)}
}

func Expire(key string, seconds int64) Command[*proto.ExpireRes] {
	return Command[*proto.ExpireRes]{newCall(OpExpire, 2, key, itoa(seconds))}
}

func ExpireAt(key string, unixSec int64) Command[*proto.ExpireAtRes] {
	return Command[*proto.ExpireAtRes]{newCall(OpExpireAt, 2, key, itoa(unixSec))}
}

func ExpireTime(key string) Command[*proto.ExpireTimeRes] {
	return Command[*proto.ExpireTimeRes]{newCall(OpExpireTime, 1, key)}
}

func TTL(key string) Command[*proto.TTLRes] {
	return Command[*proto.TTLRes]{newCall(OpTTL, 1, key)}
}

func HGet(key, field string) Command[*proto.HGetRes] {
	return Command[*proto.HGetRes]{newCall(OpHGet, 2, key, field)}
}

// HSet writes field/value pairs in order after the key.
func HSet(key string, fields ...proto.HElement) Command[*proto.HSetRes] {
	args := make([]string, 0, 1+2*len(fields))
	args = append(args, key)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return Command[*proto.HSetRes]{newCall(OpHSet, 3, args...)}
}

func HGetAll(key string) Command[*proto.HGetAllRes] {
	return Command[*proto.HGetAllRes]{newCall(OpHGetAll, 1, key)}
}

// ZAdd writes flags once each, in the order given, then score/member pairs.
func ZAdd(key string, members []ZMember, flags ...ZAddFlag) Command[*proto.ZAddRes] {
	args := []string{key}
	seen := make(map[ZAddFlag]bool, len(flags))
	for _, f := range flags {
		if seen[f] {
			continue
		}
		seen[f] = true
		args = append(args, string(f))
	}
	for _, m := range members {
		args = append(args, itoa(m.Score), m.Member)
	}
	return Command[*proto.ZAddRes]{newCall(OpZAdd, 3+len(seen), args...)}
}

func ZCount(key, min, max string) Command[*proto.ZCountRes] {
	return Command[*proto.ZCountRes]{newCall(OpZCount, 3, key, min, max)}
}

func ZRange(key string, start, stop int64, mode ZRangeMode) Command[*proto.ZRangeRes] {
	return Command[*proto.ZRangeRes]{newCall(OpZRange, 3, zrangeArgs(key, start, stop, mode)...)}
}

func ZPopMax(key string) Command[*proto.ZPopMaxRes] {
	return Command[*proto.ZPopMaxRes]{newCall(OpZPopMax, 1, key)}
}

func ZPopMaxN(key string, count int64) Command[*proto.ZPopMaxRes] {
	return Command[*proto.ZPopMaxRes]{newCall(OpZPopMax, 2, key, itoa(count))}
}

func ZPopMin(key string) Command[*proto.ZPopMinRes] {
	return Command[*proto.ZPopMinRes]{newCall(OpZPopMin, 1, key)}
}

func ZPopMinN(key string, count int64) Command[*proto.ZPopMinRes] {
	return Command[*proto.ZPopMinRes]{newCall(OpZPopMin, 2, key, itoa(count))}
}

func ZRem(key string, members ...string) Command[*proto.ZRemRes] {
	return Command[*proto.ZRemRes]{newCall(OpZRem, 2, append([]string{key}, members...)...)}
}

func ZRank(key, member string) Command[*proto.ZRankRes] {
	return Command[*proto.ZRankRes]{newCall(OpZRank, 2, key, member)}
}

func ZCard(key string) Command[*proto.ZCardRes] {
	return Command[*proto.ZCardRes]{newCall(OpZCard, 1, key)}
}

// Unwatch cancels the subscription identified by the fingerprint the server
// attached to its updates.
func Unwatch(fingerprint uint64) Command[*proto.UnwatchRes] {
	return Command[*proto.UnwatchRes]{newCall(OpUnwatch, 1, strconv.FormatUint(fingerprint, 10))}
}

func GetWatch(key string) WatchCommand[*proto.GetRes] {
	return WatchCommand[*proto.GetRes]{newCall(OpGetWatch, 1, key)}
}

func HGetWatch(key, field string) WatchCommand[*proto.HGetRes] {
	return WatchCommand[*proto.HGetRes]{newCall(OpHGetWatch, 2, key, field)}
}

func HGetAllWatch(key string) WatchCommand[*proto.HGetAllRes] {
	return WatchCommand[*proto.HGetAllRes]{newCall(OpHGetAllWatch, 1, key)}
}

func ZRangeWatch(key string, start, stop int64, mode ZRangeMode) WatchCommand[*proto.ZRangeRes] {
	return WatchCommand[*proto.ZRangeRes]{newCall(OpZRangeWatch, 3, zrangeArgs(key, start, stop, mode)...)}
}

func ZCountWatch(key, min, max string) WatchCommand[*proto.ZCountRes] {
	return WatchCommand[*proto.ZCountRes]{newCall(OpZCountWatch, 3, key, min, max)}
}

func ZCardWatch(key string) WatchCommand[*proto.ZCardRes] {
	return WatchCommand[*proto.ZCardRes]{newCall(OpZCardWatch, 1, key)}
}

func ZRankWatch(key, member string) WatchCommand[*proto.ZRankRes] {
	return WatchCommand[*proto.ZRankRes]{newCall(OpZRankWatch, 2, key, member)}
}

func zrangeArgs(key string, start, stop int64, mode ZRangeMode) []string {
	args := []string{key, itoa(start), itoa(stop)}
	if mode == ByScore {
		args = append(args, string(ByScore))
	}
	return args
}
