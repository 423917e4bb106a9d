package runtime

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// RegisterBuiltins adds the native functions to the given environment.
func RegisterBuiltins(env *Environment) {
	for _, b := range builtins {
		env.Define(b.Name, b)
	}
}

var builtins = []*BuiltinVal{
	{
		Name:   "clock",
		Params: 0,
		Fn: func(args []Value) (Value, error) {
			return NumberVal(float64(time.Now().UnixNano()) / float64(time.Second)), nil
		},
	},
	{
		Name:   "str",
		Params: 1,
		Fn: func(args []Value) (Value, error) {
			return StringVal(args[0].String()), nil
		},
	},
	{
		Name:   "type",
		Params: 1,
		Fn: func(args []Value) (Value, error) {
			return StringVal(args[0].TypeName()), nil
		},
	},
	{
		Name:   "len",
		Params: 1,
		Fn: func(args []Value) (Value, error) {
			s, ok := args[0].(StringVal)
			if !ok {
				return nil, fmt.Errorf("len() expects a string, got %s.", args[0].TypeName())
			}
			return NumberVal(utf8.RuneCountInString(string(s))), nil
		},
	},
	{
		Name:   "hasfield",
		Params: 2,
		Fn: func(args []Value) (Value, error) {
			inst, name, err := instanceAndName("hasfield", args)
			if err != nil {
				return nil, err
			}
			_, ok := inst.Fields[name]
			return BoolVal(ok), nil
		},
	},
	{
		Name:   "getfield",
		Params: 2,
		Fn: func(args []Value) (Value, error) {
			inst, name, err := instanceAndName("getfield", args)
			if err != nil {
				return nil, err
			}
			val, ok := inst.Fields[name]
			if !ok {
				return nil, &RuntimeError{Kind: KindUndefined, Message: fmt.Sprintf("Undefined property '%s'.", name)}
			}
			return val, nil
		},
	},
	{
		Name:   "setfield",
		Params: 3,
		Fn: func(args []Value) (Value, error) {
			inst, name, err := instanceAndName("setfield", args)
			if err != nil {
				return nil, err
			}
			inst.Set(name, args[2])
			return args[2], nil
		},
	},
	{
		Name:   "delfield",
		Params: 2,
		Fn: func(args []Value) (Value, error) {
			inst, name, err := instanceAndName("delfield", args)
			if err != nil {
				return nil, err
			}
			delete(inst.Fields, name)
			return NilVal{}, nil
		},
	},
	{
		Name:   "isinstance",
		Params: 2,
		Fn: func(args []Value) (Value, error) {
			cls, ok := args[1].(*ClassVal)
			if !ok {
				return nil, fmt.Errorf("isinstance() expects a class as second argument, got %s.", args[1].TypeName())
			}
			inst, ok := args[0].(*InstanceVal)
			if !ok {
				return BoolVal(false), nil
			}
			return BoolVal(inst.Class.IsSubclassOf(cls)), nil
		},
	},
}

// instanceAndName checks the (instance, string) prefix shared by the field
// natives.
func instanceAndName(fn string, args []Value) (*InstanceVal, string, error) {
	inst, ok := args[0].(*InstanceVal)
	if !ok {
		return nil, "", fmt.Errorf("%s() expects an instance, got %s.", fn, args[0].TypeName())
	}
	name, ok := args[1].(StringVal)
	if !ok {
		return nil, "", fmt.Errorf("%s() expects a field name string, got %s.", fn, args[1].TypeName())
	}
	return inst, string(name), nil
}
