package vparcel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// CodecSuffix is appended to a type identity to form the default identity
// of its versioned codec.
const CodecSuffix = "Codec"

// Default is the registry used when Options.Registry is nil.
var Default = NewRegistry(RegistryOptions{})

type RegistryOptions struct {
	Logger *slog.Logger

	// ProtoTypes resolves embedded protobuf messages by full name.
	// Defaults to protoregistry.GlobalTypes.
	ProtoTypes protoregistry.MessageTypeResolver
}

// Registry maps Go types to wire identities and back. Registration usually
// happens from init functions; lookups are safe for concurrent use and are
// cached after the first hit.
type Registry struct {
	logger     *slog.Logger
	protoTypes protoregistry.MessageTypeResolver

	mu         sync.RWMutex
	byType     map[reflect.Type]*codec
	byIdentity map[string]*codec

	encoders sync.Map // reflect.Type -> *codec
	decoders sync.Map // string -> *codec
}

type codecKind int

const (
	versionedCodec codecKind = iota
	serializableCodec
)

type codec struct {
	identity string
	aliases  []string
	typ      reflect.Type
	kind     codecKind
	method   EncodingMethod

	encode func(w *Writer, v any)
	decode func(r *Reader) any
}

func NewRegistry(o RegistryOptions) *Registry {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.ProtoTypes == nil {
		o.ProtoTypes = protoregistry.GlobalTypes
	}
	return &Registry{
		logger:     o.Logger,
		protoTypes: o.ProtoTypes,
		byType:     make(map[reflect.Type]*codec),
		byIdentity: make(map[string]*codec),
	}
}

type RegisterOption func(c *codec)

// WithIdentity overrides the identity written on the wire.
func WithIdentity(identity string) RegisterOption {
	return func(c *codec) {
		c.identity = identity
	}
}

// WithAliases adds identities accepted when decoding, typically names the
// type had before a rename.
func WithAliases(aliases ...string) RegisterOption {
	return func(c *codec) {
		c.aliases = append(c.aliases, aliases...)
	}
}

// TypeIdentity returns the package-qualified name of typ, looking through
// pointers.
func TypeIdentity(typ reflect.Type) string {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.PkgPath() == "" || typ.Name() == "" {
		return typ.String()
	}
	return typ.PkgPath() + "." + typ.Name()
}

// CodecIdentity returns the default identity of a versioned codec for typ.
func CodecIdentity(typ reflect.Type) string {
	return TypeIdentity(typ) + CodecSuffix
}

// Register adds a versioned codec for T. Encoded values carry the codec's
// identity, so T is usually a pointer to a struct and values are decoded back
// to T even when read into an interface.
//
// Panics if T or any of its identities is already registered.
func Register[T any](reg *Registry, encode func(w *Writer, v T), decode func(r *Reader) T, opts ...RegisterOption) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Interface {
		panic(fmt.Sprintf("vparcel: cannot register interface type %v", typ))
	}
	c := &codec{
		identity: CodecIdentity(typ),
		typ:      typ,
		kind:     versionedCodec,
		encode: func(w *Writer, v any) {
			encode(w, v.(T))
		},
		decode: func(r *Reader) any {
			return decode(r)
		},
	}
	reg.add(c, opts)
}

// RegisterSerializable makes T encodable as an opaque blob produced by
// method. Serializable values are not versioned: the blob is written whole
// and its layout is up to the encoding.
func RegisterSerializable[T any](reg *Registry, method EncodingMethod, opts ...RegisterOption) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Interface {
		panic(fmt.Sprintf("vparcel: cannot register interface type %v", typ))
	}
	c := &codec{
		identity: TypeIdentity(typ),
		typ:      typ,
		kind:     serializableCodec,
		method:   method,
	}
	reg.add(c, opts)
}

func (reg *Registry) add(c *codec, opts []RegisterOption) {
	for _, f := range opts {
		f(c)
	}
	if c.identity == "" {
		panic(fmt.Sprintf("vparcel: empty identity for %v", c.typ))
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if prev := reg.byType[c.typ]; prev != nil {
		panic(fmt.Sprintf("vparcel: %v is already registered as %q", c.typ, prev.identity))
	}
	ids := append([]string{c.identity}, c.aliases...)
	for _, id := range ids {
		if prev := reg.byIdentity[id]; prev != nil {
			panic(fmt.Sprintf("vparcel: identity %q of %v is already used by %v", id, c.typ, prev.typ))
		}
	}
	reg.byType[c.typ] = c
	for _, id := range ids {
		reg.byIdentity[id] = c
	}
}

func (reg *Registry) codecFor(typ reflect.Type) *codec {
	if c, ok := reg.encoders.Load(typ); ok {
		return c.(*codec)
	}
	reg.mu.RLock()
	c := reg.byType[typ]
	reg.mu.RUnlock()
	if c == nil {
		return nil
	}
	actual, loaded := reg.encoders.LoadOrStore(typ, c)
	if !loaded {
		reg.logger.LogAttrs(context.Background(), slog.LevelDebug, "vparcel: resolved encoder", slog.String("type", typ.String()), slog.String("identity", c.identity))
	}
	return actual.(*codec)
}

func (reg *Registry) resolveEncoder(typ reflect.Type) (*codec, error) {
	if c := reg.codecFor(typ); c != nil {
		return c, nil
	}
	return nil, &CodecNotFoundError{Identity: CodecIdentity(typ), Type: typ}
}

func (reg *Registry) resolveDecoder(identity string) (*codec, error) {
	if c, ok := reg.decoders.Load(identity); ok {
		return c.(*codec), nil
	}
	reg.mu.RLock()
	c := reg.byIdentity[identity]
	reg.mu.RUnlock()
	if c == nil {
		return nil, &CodecNotFoundError{Identity: identity}
	}
	actual, loaded := reg.decoders.LoadOrStore(identity, c)
	if !loaded {
		reg.logger.LogAttrs(context.Background(), slog.LevelDebug, "vparcel: resolved decoder", slog.String("identity", identity), slog.String("type", c.typ.String()))
	}
	return actual.(*codec), nil
}

func (reg *Registry) resolveProto(name string) (protoreflect.MessageType, error) {
	mt, err := reg.protoTypes.FindMessageByName(protoreflect.FullName(name))
	if errors.Is(err, protoregistry.NotFound) {
		return nil, &CodecNotFoundError{Identity: name}
	} else if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", name, err)
	}
	return mt, nil
}

// Identities returns the sorted primary identities of all registered codecs.
func (reg *Registry) Identities() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	result := make([]string, 0, len(reg.byType))
	for _, c := range reg.byType {
		result = append(result, c.identity)
	}
	slices.Sort(result)
	return result
}
