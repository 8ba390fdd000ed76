/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"errors"

	"github.com/valyala/fastjson"
)

// ErrNotObject is returned when a JSON message is not an object.
var ErrNotObject = errors.New("message is not a JSON object")

// Message is an inbound message that can be walked field by field.
type Message interface {
	// Raw returns the message as it was received.
	Raw() []byte

	// VisitFields calls fn for every field of the message until fn returns false.
	VisitFields(fn func(name string, v Value) bool) error
}

var parserPool fastjson.ParserPool

type jsonMessage struct {
	data []byte
}

// JSONMessage returns a Message walking a JSON object in document order.
// Nested objects are flattened using dotted names (e.g. "data.s"),
// arrays, numbers and booleans are passed as their JSON text and null as a null Value.
// The data is parsed on every VisitFields call.
func JSONMessage(data []byte) Message {
	return jsonMessage{data: data}
}

func (m jsonMessage) Raw() []byte {
	return m.data
}

func (m jsonMessage) VisitFields(fn func(name string, v Value) bool) error {
	p := parserPool.Get()
	defer parserPool.Put(p)

	root, err := p.ParseBytes(m.data)
	if err != nil {
		return err
	}
	obj, err := root.Object()
	if err != nil {
		return ErrNotObject
	}
	visitObject(obj, "", fn)
	return nil
}

// visitObject returns false when fn asked to stop.
func visitObject(obj *fastjson.Object, prefix string, fn func(name string, v Value) bool) bool {
	proceed := true
	obj.Visit(func(key []byte, v *fastjson.Value) {
		if !proceed {
			return
		}
		name := string(key)
		if prefix != "" {
			name = prefix + "." + name
		}
		switch v.Type() {
		case fastjson.TypeObject:
			proceed = visitObject(v.GetObject(), name, fn)
		case fastjson.TypeNull:
			proceed = fn(name, NullValue())
		case fastjson.TypeString:
			proceed = fn(name, StringValue(string(v.GetStringBytes())))
		default:
			proceed = fn(name, StringValue(string(v.MarshalTo(nil))))
		}
	})
	return proceed
}
