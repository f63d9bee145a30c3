/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Gridmodel Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package datasources

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/google/gridmodel/core/records"
)

// ProtoLoader loads a protobuf message and flattens its linear chain of
// repeated messages into records: one record per leaf, carrying the scalar
// fields of every enclosing level.
//
// Required config keys:
//   - file_path: Path to the data file (.textproto or .binpb)
//   - message_type: Fully qualified proto message name
//
// Optional config keys:
//   - descriptor_set: Path to a serialized FileDescriptorSet
//   - format: "textproto" or "binary" (inferred from extension if not specified)
type ProtoLoader struct {
	mu       sync.RWMutex
	registry *protoregistry.Files

	// Descriptor set paths already registered.
	loadedDescriptors map[string]bool
}

// NewProtoLoader creates a new proto loader with an empty registry.
func NewProtoLoader() *ProtoLoader {
	return &ProtoLoader{
		registry:          new(protoregistry.Files),
		loadedDescriptors: make(map[string]bool),
	}
}

// SourceType returns "textproto".
func (l *ProtoLoader) SourceType() string {
	return "textproto"
}

// LoadDescriptorSet registers a descriptor set file once.
func (l *ProtoLoader) LoadDescriptorSet(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loadedDescriptors[path] {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read descriptor set: %w", err)
	}
	fds := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal(data, fds); err != nil {
		return fmt.Errorf("failed to unmarshal descriptor set: %w", err)
	}
	if err := l.registerFiles(fds); err != nil {
		return err
	}
	l.loadedDescriptors[path] = true
	return nil
}

// RegisterFiles adds already-parsed file descriptors to the registry.
func (l *ProtoLoader) RegisterFiles(fds *descriptorpb.FileDescriptorSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registerFiles(fds)
}

func (l *ProtoLoader) registerFiles(fds *descriptorpb.FileDescriptorSet) error {
	files, err := protodesc.NewFiles(fds)
	if err != nil {
		return fmt.Errorf("failed to create file descriptors: %w", err)
	}

	var registerErr error
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		if _, err := l.registry.FindFileByPath(fd.Path()); err == nil {
			return true
		}
		if err := l.registry.RegisterFile(fd); err != nil {
			registerErr = err
			return false
		}
		return true
	})
	return registerErr
}

// RegisteredMessages returns the top-level message names of every
// registered file.
func (l *ProtoLoader) RegisteredMessages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var messages []string
	l.registry.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		msgs := fd.Messages()
		for i := 0; i < msgs.Len(); i++ {
			messages = append(messages, string(msgs.Get(i).FullName()))
		}
		return true
	})
	return messages
}

// prepare registers the configured descriptor set and resolves the message.
func (l *ProtoLoader) prepare(config map[string]string) (protoreflect.MessageDescriptor, error) {
	messageType := config["message_type"]
	if messageType == "" {
		return nil, fmt.Errorf("message_type is required")
	}
	if descriptorSet := config["descriptor_set"]; descriptorSet != "" {
		if err := l.LoadDescriptorSet(descriptorSet); err != nil {
			return nil, err
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	desc, err := l.registry.FindDescriptorByName(protoreflect.FullName(messageType))
	if err != nil {
		return nil, fmt.Errorf("message %q not found in registry: %w", messageType, err)
	}
	msgDesc, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%q is not a message type", messageType)
	}
	return msgDesc, nil
}

// DiscoverSchema derives one column per scalar field along the hierarchy.
func (l *ProtoLoader) DiscoverSchema(ctx context.Context, config map[string]string) (*TableSchema, error) {
	msgDesc, err := l.prepare(config)
	if err != nil {
		return nil, err
	}
	schema := &TableSchema{}
	for _, level := range findLinearHierarchy(msgDesc) {
		for _, fd := range level.scalarFields {
			schema.Columns = append(schema.Columns, &ColumnSchema{
				Name: string(fd.Name()),
				Type: protoColumnType(fd),
			})
		}
	}
	return schema, nil
}

// Load parses the data file and extracts one record per leaf.
func (l *ProtoLoader) Load(ctx context.Context, config map[string]string, schema *TableSchema) ([]records.Record, error) {
	msgDesc, err := l.prepare(config)
	if err != nil {
		return nil, err
	}

	filePath := config["file_path"]
	if filePath == "" {
		return nil, fmt.Errorf("file_path is required")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read proto file: %w", err)
	}

	format := config["format"]
	if format == "" {
		if strings.HasSuffix(filePath, ".textproto") || strings.HasSuffix(filePath, ".txtpb") {
			format = "textproto"
		} else {
			format = "binary"
		}
	}

	msg := dynamicpb.NewMessage(msgDesc)
	switch format {
	case "textproto":
		err = prototext.UnmarshalOptions{Resolver: l}.Unmarshal(data, msg)
	case "binary":
		err = proto.UnmarshalOptions{Resolver: l}.Unmarshal(data, msg)
	default:
		return nil, fmt.Errorf("unknown format: %s (expected 'textproto' or 'binary')", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}

	hierarchy := findLinearHierarchy(msgDesc)
	var out []records.Record
	walkHierarchy(msg, hierarchy, 0, records.Record{}, &out)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindMessageByName implements protoregistry.MessageTypeResolver.
func (l *ProtoLoader) FindMessageByName(name protoreflect.FullName) (protoreflect.MessageType, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	desc, err := l.registry.FindDescriptorByName(name)
	if err != nil {
		return nil, err
	}
	msgDesc, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%q is not a message type", name)
	}
	return dynamicpb.NewMessageType(msgDesc), nil
}

// FindMessageByURL implements protoregistry.MessageTypeResolver.
func (l *ProtoLoader) FindMessageByURL(url string) (protoreflect.MessageType, error) {
	name := url
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		name = url[i+1:]
	}
	return l.FindMessageByName(protoreflect.FullName(name))
}

// FindExtensionByName implements protoregistry.ExtensionTypeResolver.
func (l *ProtoLoader) FindExtensionByName(protoreflect.FullName) (protoreflect.ExtensionType, error) {
	return nil, protoregistry.NotFound
}

// FindExtensionByNumber implements protoregistry.ExtensionTypeResolver.
func (l *ProtoLoader) FindExtensionByNumber(protoreflect.FullName, protoreflect.FieldNumber) (protoreflect.ExtensionType, error) {
	return nil, protoregistry.NotFound
}

// hierarchyLevel is one message in a linear chain of nested repeated
// messages.
type hierarchyLevel struct {
	// next is the repeated message field leading to the next level, nil at
	// the leaf.
	next         protoreflect.FieldDescriptor
	scalarFields []protoreflect.FieldDescriptor
}

// findLinearHierarchy follows the last repeated message field of each
// level. Singular messages and repeated scalars are not columns.
func findLinearHierarchy(msgDesc protoreflect.MessageDescriptor) []hierarchyLevel {
	var levels []hierarchyLevel
	seen := make(map[protoreflect.FullName]bool)
	for current := msgDesc; current != nil && !seen[current.FullName()]; {
		seen[current.FullName()] = true
		var level hierarchyLevel
		var next protoreflect.MessageDescriptor

		fields := current.Fields()
		for i := 0; i < fields.Len(); i++ {
			fd := fields.Get(i)
			switch {
			case fd.IsMap():
			case fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind:
				if fd.Cardinality() == protoreflect.Repeated {
					level.next = fd
					next = fd.Message()
				}
			case fd.Cardinality() != protoreflect.Repeated:
				level.scalarFields = append(level.scalarFields, fd)
			}
		}
		levels = append(levels, level)
		current = next
	}
	return levels
}

// walkHierarchy emits a record per leaf. A level whose repeated field is
// empty emits one record with only the enclosing fields.
func walkHierarchy(msg protoreflect.Message, hierarchy []hierarchyLevel, depth int, current records.Record, out *[]records.Record) {
	level := hierarchy[depth]
	row := make(records.Record, len(current)+len(level.scalarFields))
	for k, v := range current {
		row[k] = v
	}
	for _, fd := range level.scalarFields {
		row[string(fd.Name())] = protoValue(msg.Get(fd), fd)
	}

	if level.next == nil || depth == len(hierarchy)-1 {
		*out = append(*out, row)
		return
	}
	list := msg.Get(level.next).List()
	if list.Len() == 0 {
		*out = append(*out, row)
		return
	}
	for i := 0; i < list.Len(); i++ {
		walkHierarchy(list.Get(i).Message(), hierarchy, depth+1, row, out)
	}
}

func protoColumnType(fd protoreflect.FieldDescriptor) ColumnType {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return TypeBool
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return TypeInt64
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return TypeUint64
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return TypeFloat64
	default:
		// Strings, bytes and enum names.
		return TypeString
	}
}

// protoValue converts a scalar field value to its record value.
func protoValue(val protoreflect.Value, fd protoreflect.FieldDescriptor) any {
	switch protoColumnType(fd) {
	case TypeBool:
		return val.Bool()
	case TypeInt64:
		return val.Int()
	case TypeUint64:
		return val.Uint()
	case TypeFloat64:
		return val.Float()
	}
	switch fd.Kind() {
	case protoreflect.BytesKind:
		return string(val.Bytes())
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(val.Enum()); ev != nil {
			return string(ev.Name())
		}
		return fmt.Sprintf("%d", val.Enum())
	}
	return val.String()
}
