package runtime

// ClassVal is a class: its name, optional superclass and the method table.
// The method table is complete when the class value is created and is never
// modified afterwards.
type ClassVal struct {
	Name       string
	Superclass *ClassVal
	Methods    map[string]*FuncVal
}

func (v *ClassVal) TypeName() string { return "class" }
func (v *ClassVal) String() string   { return v.Name }

// FindMethod looks name up in this class and then along the superclass
// chain. The result is unbound.
func (v *ClassVal) FindMethod(name string) *FuncVal {
	for cls := v; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of the (possibly inherited) initializer, or 0.
func (v *ClassVal) Arity() int {
	if init := v.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// IsSubclassOf reports whether v is other or inherits from it.
func (v *ClassVal) IsSubclassOf(other *ClassVal) bool {
	for cls := v; cls != nil; cls = cls.Superclass {
		if cls == other {
			return true
		}
	}
	return false
}

// InstanceVal is an object created by calling a class.
type InstanceVal struct {
	Class  *ClassVal
	Fields map[string]Value
}

// NewInstance allocates an instance of cls with no fields.
func NewInstance(cls *ClassVal) *InstanceVal {
	return &InstanceVal{Class: cls, Fields: make(map[string]Value)}
}

func (v *InstanceVal) TypeName() string { return "instance" }
func (v *InstanceVal) String() string   { return v.Class.Name + " instance" }

// Get returns the field called name if there is one, otherwise the method
// called name bound to v.
func (v *InstanceVal) Get(name string) (Value, bool) {
	if val, ok := v.Fields[name]; ok {
		return val, true
	}
	if m := v.Class.FindMethod(name); m != nil {
		return m.Bind(v), true
	}
	return nil, false
}

// Set writes a field, creating it if needed. Methods are never affected.
func (v *InstanceVal) Set(name string, value Value) {
	v.Fields[name] = value
}
