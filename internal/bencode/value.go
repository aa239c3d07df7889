package bencode

import "sort"

// Value is one node of a decoded bencode tree: Int, String, List or Dict.
type Value interface {
	isValue()
}

type Int int64

// String is a raw byte string. It is not guaranteed to be valid UTF-8.
type String []byte

type List []Value

type Entry struct {
	Key   string
	Value Value
}

// Dict keeps its entries in insertion order. Keys are unique; the first
// occurrence of a key wins.
type Dict struct {
	entries []Entry
}

func (Int) isValue()    {}
func (String) isValue() {}
func (List) isValue()   {}
func (Dict) isValue()   {}

func NewDict(entries ...Entry) Dict {
	d := Dict{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		if _, ok := d.Get(e.Key); ok {
			continue
		}
		d.entries = append(d.entries, e)
	}
	return d
}

func (d Dict) Len() int {
	return len(d.entries)
}

func (d Dict) Get(key string) (Value, bool) {
	for _, e := range d.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// With returns a copy of d where key maps to v.
func (d Dict) With(key string, v Value) Dict {
	entries := make([]Entry, 0, len(d.entries)+1)
	replaced := false
	for _, e := range d.entries {
		if e.Key == key {
			e.Value = v
			replaced = true
		}
		entries = append(entries, e)
	}
	if !replaced {
		entries = append(entries, Entry{Key: key, Value: v})
	}
	return Dict{entries: entries}
}

// Entries returns a copy of the entries in insertion order.
func (d Dict) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Sorted returns a copy of the entries in ascending byte order of their keys.
func (d Dict) Sorted() []Entry {
	entries := d.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

func (d Dict) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key
	}
	return keys
}

// Equal reports whether a and b hold the same tree. Dictionaries compare
// equal regardless of entry order.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && string(av) == string(bv)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dict:
		bv, ok := b.(Dict)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, e := range av.entries {
			other, ok := bv.Get(e.Key)
			if !ok || !Equal(e.Value, other) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}
