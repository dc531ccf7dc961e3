package harness

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/IvanVnn/icerpc-csharp/internal/codec"
	"github.com/IvanVnn/icerpc-csharp/internal/frontend"
	"github.com/IvanVnn/icerpc-csharp/internal/generators"
	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/logging"
)

// Harness executes the cases of one scenario against a codec over the
// scenario's validated definitions.
type Harness struct {
	files  []*grammar.File
	defs   *grammar.Definitions
	codec  *codec.Codec
	logger *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New loads and validates the scenario's spec files.
func New(scenario *Scenario, opts ...Option) (*Harness, error) {
	h := &Harness{logger: logging.Nop()}
	for _, opt := range opts {
		opt(h)
	}

	loaded, errs := frontend.LoadFiles(scenario.Specs, frontend.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errors.Newf("scenario %s: loading specs: %s", scenario.Name, joinErrors(errs))
	}
	defs, verrs := frontend.Validate(loaded.Files)
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Newf("scenario %s: invalid definitions: %s", scenario.Name, joinErrors(errs))
	}

	h.files = loaded.Files
	h.defs = defs
	h.codec = codec.New(defs)
	return h, nil
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Definitions returns the validated definitions of the scenario.
func (h *Harness) Definitions() *grammar.Definitions { return h.defs }

// Units generates the C# units of every spec file, in spec order.
func (h *Harness) Units() ([]generators.Unit, error) {
	opts := generators.DefaultOptions()
	opts.Namespaces = generators.NamespacesOf(h.files)
	var units []generators.Unit
	for _, f := range h.files {
		u, err := generators.GenerateUnits(f, h.defs, opts)
		if err != nil {
			return nil, err
		}
		units = append(units, u...)
	}
	return units, nil
}

// Run executes every case of the scenario. A returned error means the
// scenario could not be set up; failed expectations are reported in the
// Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h, err := New(scenario, opts...)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, scenario), nil
}

// Run executes the cases of scenario in order.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) *Result {
	result := NewResult(scenario.Name)
	for i := range scenario.Cases {
		c := &scenario.Cases[i]
		res := newCaseResult(c)

		var err error
		switch c.Kind {
		case KindRoundtrip:
			err = h.runRoundtrip(c, res)
		case KindSlicing:
			err = h.runSlicing(c, res)
		case KindEnum:
			err = h.runEnum(c, res)
		case KindDispatch:
			err = h.runDispatch(ctx, c, res)
		default:
			err = errors.Newf("unknown case kind %q", c.Kind)
		}
		if err != nil {
			res.fail(err.Error())
		}

		h.logger.Debug("case finished",
			zap.String("scenario", scenario.Name),
			zap.String("case", c.Name),
			zap.Bool("pass", res.Pass))
		result.Add(*res)
	}
	return result
}

// typeRef parses a type string. Named types must be fully qualified.
func (h *Harness) typeRef(s string) (grammar.TypeRef, error) {
	t, err := frontend.ParseType(s)
	if err != nil {
		return t, err
	}
	return t, h.checkNamed(t)
}

func (h *Harness) checkNamed(t grammar.TypeRef) error {
	switch t.Kind {
	case grammar.TypeNamed:
		if _, ok := h.defs.Lookup(t.Name); !ok {
			return errors.Newf("type %q is not defined", t.Name)
		}
	case grammar.TypeSequence:
		return h.checkNamed(*t.Element)
	case grammar.TypeDictionary:
		if err := h.checkNamed(*t.Key); err != nil {
			return err
		}
		return h.checkNamed(*t.Element)
	}
	return nil
}

func (h *Harness) runRoundtrip(c *Case, res *CaseResult) error {
	t, err := h.typeRef(c.Type)
	if err != nil {
		return err
	}
	value, err := h.codec.Coerce(t, c.Value)
	if err != nil {
		checkError(res, c.Expect, err)
		return nil
	}
	encoded, err := h.codec.Encode(t, value)
	if err == nil {
		res.Observed["encoded"] = hex.EncodeToString(encoded)
	}
	var decoded any
	if err == nil {
		decoded, err = h.codec.Decode(t, encoded)
	}
	if checkError(res, c.Expect, err) {
		return nil
	}
	res.Observed["value"] = Plain(decoded)

	again, err := h.codec.Encode(t, decoded)
	if err != nil {
		return errors.Wrap(err, "re-encode")
	}
	if !bytes.Equal(again, encoded) {
		res.fail(fmt.Sprintf("re-encoding differs: %x != %x", again, encoded))
	}
	if !valuesEqual(decoded, value) {
		res.fail((&AssertionError{Field: "value", Expected: Plain(value), Actual: Plain(decoded)}).Error())
	}
	if c.Expect != nil && c.Expect.Encoded != "" {
		want := strings.ToLower(strings.ReplaceAll(c.Expect.Encoded, " ", ""))
		if got := hex.EncodeToString(encoded); got != want {
			res.fail((&AssertionError{Field: "encoded", Expected: want, Actual: got}).Error())
		}
	}
	return nil
}

func (h *Harness) runSlicing(c *Case, res *CaseResult) error {
	t, err := h.typeRef(c.Type)
	if err != nil {
		return err
	}
	value, err := h.codec.Coerce(t, c.Value)
	if err != nil {
		return err
	}
	original, err := h.codec.Encode(t, value)
	if err != nil {
		return errors.Wrap(err, "encode")
	}

	peer := codec.New(h.defs.Without(c.Hide...))
	received, err := peer.Decode(t, original)
	if checkError(res, c.Expect, err) {
		return nil
	}

	var (
		typeID  string
		fields  map[string]any
		unknown int
	)
	switch v := received.(type) {
	case *codec.ClassValue:
		typeID, fields, unknown = v.TypeID, v.Fields, len(v.UnknownSlices)
	case *codec.ExceptionValue:
		typeID, fields, unknown = v.TypeID, v.Fields, len(v.UnknownSlices)
	default:
		return errors.Newf("%s is not a class or exception type", c.Type)
	}
	res.Observed["type_id"] = typeID
	res.Observed["unknown_slices"] = int64(unknown)
	res.Observed["fields"] = plainMap(fields)

	relayed, err := peer.Encode(t, received)
	if err != nil {
		return errors.Wrap(err, "relay")
	}
	if !bytes.Equal(relayed, original) {
		res.fail(fmt.Sprintf("relayed payload differs: %x != %x", relayed, original))
	}
	back, err := h.codec.Decode(t, relayed)
	if err != nil {
		return errors.Wrap(err, "decode relayed payload")
	}
	if !valuesEqual(back, value) {
		res.fail((&AssertionError{Field: "relayed value", Expected: Plain(value), Actual: Plain(back)}).Error())
	}

	if e := c.Expect; e != nil {
		if e.TypeID != "" && e.TypeID != typeID {
			res.fail((&AssertionError{Field: "type_id", Expected: e.TypeID, Actual: typeID}).Error())
		}
		if e.UnknownSlices != nil && *e.UnknownSlices != unknown {
			res.fail((&AssertionError{Field: "unknown_slices", Expected: *e.UnknownSlices, Actual: unknown}).Error())
		}
		if err := matchSubset("fields", fields, e.Fields); err != nil {
			res.fail(err.Error())
		}
	}
	return nil
}

func (h *Harness) runEnum(c *Case, res *CaseResult) error {
	e, ok := h.defs.Lookup(c.Type)
	if !ok {
		return errors.Newf("type %q is not defined", c.Type)
	}
	def, ok := e.(*grammar.Enum)
	if !ok {
		return errors.Newf("%s is a %s, not an enum", c.Type, e.Kind())
	}
	wireType := grammar.VarInt32
	if def.Underlying != nil {
		wireType = *def.Underlying
	}

	raw, err := h.codec.Coerce(grammar.PrimitiveOf(wireType), *c.Raw)
	var payload []byte
	if err == nil {
		payload, err = h.codec.Encode(grammar.PrimitiveOf(wireType), raw)
	}
	var decoded any
	if err == nil {
		decoded, err = h.codec.Decode(grammar.Named(c.Type), payload)
	}
	if checkError(res, c.Expect, err) {
		return nil
	}

	ev := decoded.(codec.EnumValue)
	res.Observed["enumerator"] = ev.Name
	res.Observed["value"] = ev.Value
	if c.Expect != nil && c.Expect.Enumerator != "" && c.Expect.Enumerator != ev.Name {
		res.fail((&AssertionError{Field: "enumerator", Expected: c.Expect.Enumerator, Actual: orNone(ev.Name)}).Error())
	}
	return nil
}

func (h *Harness) runDispatch(ctx context.Context, c *Case, res *CaseResult) error {
	e, ok := h.defs.Lookup(c.Interface)
	if !ok {
		return errors.Newf("interface %q is not defined", c.Interface)
	}
	iface, ok := e.(*grammar.Interface)
	if !ok {
		return errors.Newf("%s is a %s, not an interface", c.Interface, e.Kind())
	}
	ops, err := h.defs.AllOperations(iface)
	if err != nil {
		return err
	}

	var target *grammar.Operation
	handlers := make(map[string]codec.Handler, len(ops))
	for _, op := range ops {
		handlers[op.Name] = func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		}
		if op.Name == c.Operation {
			target = op
		}
	}
	if target != nil {
		handler, err := h.scriptedHandler(target, c.Handler)
		if err != nil {
			return err
		}
		handlers[target.Name] = handler
	}

	dispatcher, err := codec.NewDispatcher(h.defs, c.Interface, handlers)
	if err != nil {
		return err
	}
	proxy, err := codec.NewProxy(h.defs, c.Interface, dispatcher)
	if err != nil {
		return err
	}

	var args map[string]any
	if target != nil {
		if args, err = h.codec.CoerceMembers(target.Inputs(), orEmpty(c.Args)); err != nil {
			return errors.Wrap(err, "arguments")
		}
	}

	results, err := proxy.Invoke(ctx, c.Operation, args)
	status := codec.StatusOk
	var exceptionID string
	if err != nil {
		var remote *codec.RemoteException
		var dispatchErr *codec.DispatchError
		switch {
		case errors.As(err, &remote):
			status = codec.StatusApplicationError
			exceptionID = remote.Exception.TypeID
			res.Observed["exception"] = exceptionID
		case errors.As(err, &dispatchErr):
			status = dispatchErr.Status
			res.Observed["message"] = dispatchErr.Message
		default:
			return errors.Wrap(err, "invoke")
		}
	}
	res.Observed["status"] = status.String()
	if results != nil {
		res.Observed["results"] = plainMap(results)
	}

	want := codec.StatusOk.String()
	if c.Expect != nil && c.Expect.Status != "" {
		want = c.Expect.Status
	}
	if want != status.String() {
		res.fail((&AssertionError{Field: "status", Expected: want, Actual: status.String()}).Error())
	}
	if c.Expect != nil {
		if c.Expect.Exception != "" && !sameTypeID(c.Expect.Exception, exceptionID) {
			res.fail((&AssertionError{Field: "exception", Expected: c.Expect.Exception, Actual: orNone(exceptionID)}).Error())
		}
		if err := matchSubset("results", results, c.Expect.Results); err != nil {
			res.fail(err.Error())
		}
	}
	return nil
}

// scriptedHandler builds the handler of the dispatched operation. Values are
// coerced up front so scenario mistakes surface as case errors rather than
// as an UnhandledException reply.
func (h *Harness) scriptedHandler(op *grammar.Operation, clause *HandlerClause) (codec.Handler, error) {
	if clause == nil {
		return func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		}, nil
	}
	switch {
	case clause.Raise != nil:
		typeID, _ := clause.Raise[codec.TypeKey].(string)
		if typeID == "" {
			return nil, errors.Newf("handler.raise needs %q", codec.TypeKey)
		}
		v, err := h.codec.Coerce(grammar.Named(typeID), clause.Raise)
		if err != nil {
			return nil, errors.Wrap(err, "handler.raise")
		}
		ex, ok := v.(*codec.ExceptionValue)
		if !ok {
			return nil, errors.Newf("handler.raise: %s is not an exception", typeID)
		}
		return func(context.Context, map[string]any) (map[string]any, error) {
			return nil, codec.Raise(ex)
		}, nil
	case clause.Fail != "":
		msg := clause.Fail
		return func(context.Context, map[string]any) (map[string]any, error) {
			return nil, errors.New(msg)
		}, nil
	default:
		results, err := h.codec.CoerceMembers(op.Outputs(), orEmpty(clause.Returns))
		if err != nil {
			return nil, errors.Wrap(err, "handler.returns")
		}
		return func(context.Context, map[string]any) (map[string]any, error) {
			return results, nil
		}, nil
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func sameTypeID(a, b string) bool {
	return strings.TrimPrefix(a, "::") == strings.TrimPrefix(b, "::")
}
