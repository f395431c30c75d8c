package legacy

import (
	"fmt"
	"math"
	"math/big"

	"github.com/nlpodyssey/gopickle/types"
)

// class stands in for every Python class referenced by the pickle stream.
// Instances are attribute bags; no Python behaviour is emulated.
type class struct {
	module string
	name   string
}

// object is an instance of an arbitrary pickled class.
type object struct {
	class *class
	args  []interface{}
	attrs map[string]interface{}
}

func findClass(module, name string) (interface{}, error) {
	return &class{module: module, name: name}, nil
}

// PyNew handles the NEWOBJ opcodes.
func (c *class) PyNew(args ...interface{}) (interface{}, error) {
	return c.newObject(args), nil
}

// Call handles REDUCE, which pickles use for copyreg reconstructors as well
// as plain class calls.
func (c *class) Call(args ...interface{}) (interface{}, error) {
	if c.module == "copyreg" && c.name == "_reconstructor" && len(args) > 0 {
		if cls, ok := args[0].(*class); ok {
			return cls.newObject(nil), nil
		}
	}
	return c.newObject(args), nil
}

func (c *class) newObject(args []interface{}) *object {
	return &object{class: c, args: args, attrs: make(map[string]interface{})}
}

func (c *class) String() string {
	return c.module + "." + c.name
}

// PySetState handles BUILD. State is either a dict or a (dict, slots) tuple.
func (o *object) PySetState(state interface{}) error {
	if t, ok := asSequence(state); ok && len(t) == 2 {
		for _, part := range t {
			if part == nil {
				continue
			}
			if err := o.setFromMapping(part); err != nil {
				return err
			}
		}
		return nil
	}
	return o.setFromMapping(state)
}

// PyDictSet sets a single attribute.
func (o *object) PyDictSet(key, value interface{}) error {
	k, ok := key.(string)
	if !ok {
		return fmt.Errorf("%s: attribute name %v is not a string", o.class, key)
	}
	o.attrs[k] = value
	return nil
}

func (o *object) setFromMapping(state interface{}) error {
	d, ok := state.(*types.Dict)
	if !ok {
		return fmt.Errorf("%s: unsupported state %T", o.class, state)
	}
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		if err := o.PyDictSet(k, v); err != nil {
			return err
		}
	}
	return nil
}

// lookup returns the first of names present on an object or dict.
func lookup(v interface{}, names ...string) (interface{}, string, bool) {
	for _, name := range names {
		switch m := v.(type) {
		case *object:
			if x, ok := m.attrs[name]; ok {
				return x, name, true
			}
		case *types.Dict:
			if x, ok := m.Get(name); ok {
				return x, name, true
			}
		}
	}
	return nil, "", false
}

func isMapping(v interface{}) bool {
	switch v.(type) {
	case *object, *types.Dict:
		return true
	}
	return false
}

func asSequence(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case *types.List:
		return []interface{}(*s), true
	case *types.Tuple:
		return []interface{}(*s), true
	case []interface{}:
		return s, true
	}
	return nil, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, !math.IsInf(f, 0)
	}
	return 0, false
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case *big.Int:
		if n.IsInt64() {
			return int(n.Int64()), true
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int(n), true
		}
	}
	return 0, false
}

func describe(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case *object:
		return "object of class " + x.class.String()
	case *class:
		return "class " + x.String()
	}
	return fmt.Sprintf("%T", v)
}
