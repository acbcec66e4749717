package proto

import (
	"strings"
)

// Command is the request message: an operation name and its ordered string arguments.
type Command struct {
	Cmd  string
	Args []string
}

func (c *Command) MarshalProto() ([]byte, error) {
	b := appendString(nil, 1, c.Cmd)
	return appendRepeatedString(b, 2, c.Args), nil
}

func (c *Command) UnmarshalProto(b []byte) error {
	*c = Command{}
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.string()
			if err != nil {
				return err
			}
			c.Cmd = v
		case 2:
			v, err := f.string()
			if err != nil {
				return err
			}
			c.Args = append(c.Args, v)
		}
		return nil
	})
}

func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}
	return c.Cmd + " " + strings.Join(c.Args, " ")
}
