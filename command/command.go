// Package command builds DiceDB commands. Each constructor fixes the operation, its
// argument order, and the response payload type the caller receives.
package command

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/danmuck/dicewire/proto"
)

var (
	ErrEmptyOp = errors.New("command: empty operation")
	ErrArity   = errors.New("command: wrong number of arguments")
)

type Op string

const (
	OpHandshake    Op = "HANDSHAKE"
	OpPing         Op = "PING"
	OpEcho         Op = "ECHO"
	OpType         Op = "TYPE"
	OpExists       Op = "EXISTS"
	OpKeys         Op = "KEYS"
	OpGet          Op = "GET"
	OpSet          Op = "SET"
	OpDel          Op = "DEL"
	OpGetDel       Op = "GETDEL"
	OpGetEx        Op = "GETEX"
	OpGetSet       Op = "GETSET"
	OpIncr         Op = "INCR"
	OpDecr         Op = "DECR"
	OpIncrBy       Op = "INCRBY"
	OpDecrBy       Op = "DECRBY"
	OpFlushDB      Op = "FLUSHDB"
	OpExpire       Op = "EXPIRE"
	OpExpireAt     Op = "EXPIREAT"
	OpExpireTime   Op = "EXPIRETIME"
	OpTTL          Op = "TTL"
	OpHGet         Op = "HGET"
	OpHSet         Op = "HSET"
	OpHGetAll      Op = "HGETALL"
	OpZAdd         Op = "ZADD"
	OpZCount       Op = "ZCOUNT"
	OpZRange       Op = "ZRANGE"
	OpZPopMax      Op = "ZPOPMAX"
	OpZPopMin      Op = "ZPOPMIN"
	OpZRem         Op = "ZREM"
	OpZRank        Op = "ZRANK"
	OpZCard        Op = "ZCARD"
	OpUnwatch      Op = "UNWATCH"
	OpGetWatch     Op = "GET.WATCH"
	OpHGetWatch    Op = "HGET.WATCH"
	OpHGetAllWatch Op = "HGETALL.WATCH"
	OpZRangeWatch  Op = "ZRANGE.WATCH"
	OpZCountWatch  Op = "ZCOUNT.WATCH"
	OpZCardWatch   Op = "ZCARD.WATCH"
	OpZRankWatch   Op = "ZRANK.WATCH"
)

// Channel names the connection role announced in a handshake.
type Channel string

const (
	ChannelCommand Channel = "command"
	ChannelWatch   Channel = "watch"
)

type call struct {
	op      Op
	args    []string
	minArgs int
}

func newCall(op Op, minArgs int, args ...string) call {
	return call{op: op, args: args, minArgs: minArgs}
}

func (c call) Op() Op { return c.op }

// Args returns a copy; commands are immutable once built.
func (c call) Args() []string { return slices.Clone(c.args) }

func (c call) Proto() *proto.Command {
	return &proto.Command{Cmd: string(c.op), Args: c.Args()}
}

func (c call) String() string {
	if len(c.args) == 0 {
		return string(c.op)
	}
	return string(c.op) + " " + strings.Join(c.args, " ")
}

func (c call) Validate() error {
	if c.op == "" {
		return ErrEmptyOp
	}
	if strings.ContainsFunc(string(c.op), isSpace) {
		return fmt.Errorf("command: operation %q contains whitespace", c.op)
	}
	if len(c.args) < c.minArgs {
		return fmt.Errorf("%w: %s needs at least %d, got %d", ErrArity, c.op, c.minArgs, len(c.args))
	}
	return nil
}

// Command is a request on the command channel whose reply carries R.
type Command[R proto.Response] struct{ call }

// WatchCommand starts a subscription whose push updates carry U.
type WatchCommand[U proto.Response] struct{ call }

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Raw splits a command line on whitespace. The reply payload is returned untyped.
func Raw(line string) Command[proto.Response] {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command[proto.Response]{}
	}
	return RawArgs(fields[0], fields[1:]...)
}

// RawArgs is Raw with the arguments already split, so they may contain spaces.
func RawArgs(op string, args ...string) Command[proto.Response] {
	return Command[proto.Response]{newCall(Op(strings.ToUpper(strings.TrimSpace(op))), 0, args...)}
}

// RawWatch is Raw for the watch channel.
func RawWatch(line string) WatchCommand[proto.Response] {
	return WatchCommand[proto.Response]{Raw(line).call}
}
