package codec

import (
	"context"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/IvanVnn/icerpc-csharp/internal/grammar"
	"github.com/IvanVnn/icerpc-csharp/internal/wire"
)

// Status is the outcome carried by a Response.
type Status int

const (
	StatusOk Status = iota
	// StatusApplicationError carries an exception from the operation's raises list.
	StatusApplicationError
	// StatusUnknownOperation is returned for operation names the service does not implement.
	StatusUnknownOperation
	// StatusInvalidData is returned when the request payload cannot be decoded.
	StatusInvalidData
	// StatusUnhandledException covers every other failure of the handler.
	StatusUnhandledException
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusApplicationError:
		return "ApplicationError"
	case StatusUnknownOperation:
		return "UnknownOperation"
	case StatusInvalidData:
		return "InvalidData"
	case StatusUnhandledException:
		return "UnhandledException"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for st := StatusOk; st <= StatusUnhandledException; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, errors.Newf("unknown status %q", s)
}

var (
	// ErrUnknownOperation is matched by a DispatchError with StatusUnknownOperation.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrUnhandledException is matched by a DispatchError with StatusUnhandledException.
	ErrUnhandledException = errors.New("unhandled exception")
)

// Request is one invocation sent to a Dispatcher.
type Request struct {
	Operation  string
	Payload    []byte
	Idempotent bool
}

// Response is the reply to a Request.
type Response struct {
	Status  Status
	Payload []byte
	// Message describes failures other than StatusApplicationError.
	Message string
}

// Invoker sends a request and returns its response.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// Handler implements one operation. args and the returned results are keyed
// by parameter name; the return value is keyed "returnValue".
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// ExceptionError is returned by a Handler to raise a Slice exception.
type ExceptionError struct {
	Exception *ExceptionValue
}

func (e *ExceptionError) Error() string {
	return "exception " + e.Exception.TypeID
}

// Raise returns an ExceptionError for the given exception value.
func Raise(ex *ExceptionValue) error {
	return &ExceptionError{Exception: ex}
}

// RemoteException is returned by a Proxy when the service replied with an
// exception from the operation's raises list.
type RemoteException struct {
	Exception *ExceptionValue
}

func (e *RemoteException) Error() string {
	return "remote exception " + e.Exception.TypeID
}

// DispatchError is returned by a Proxy for every failure status other than
// StatusApplicationError.
type DispatchError struct {
	Status  Status
	Message string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// Unwrap maps the status onto the package and wire sentinels.
func (e *DispatchError) Unwrap() error {
	switch e.Status {
	case StatusUnknownOperation:
		return ErrUnknownOperation
	case StatusInvalidData:
		return wire.ErrInvalidData
	case StatusUnhandledException:
		return ErrUnhandledException
	}
	return nil
}

// service resolves the merged operation set of an interface.
type service struct {
	codec *Codec
	iface *grammar.Interface
	ops   map[string]*grammar.Operation
}

func newService(defs *grammar.Definitions, ifaceID string) (*service, error) {
	e, ok := defs.Lookup(ifaceID)
	if !ok {
		return nil, errors.Newf("interface %q is not defined", ifaceID)
	}
	iface, ok := e.(*grammar.Interface)
	if !ok {
		return nil, errors.Newf("%q is a %s, not an interface", ifaceID, e.Kind())
	}
	all, err := defs.AllOperations(iface)
	if err != nil {
		return nil, err
	}
	ops := make(map[string]*grammar.Operation, len(all))
	for _, op := range all {
		ops[op.Name] = op
	}
	return &service{codec: New(defs), iface: iface, ops: ops}, nil
}

// raises reports whether ex is an instance of an exception op may throw.
func (s *service) raises(op *grammar.Operation, ex *ExceptionValue) (string, bool) {
	for _, id := range op.Raises {
		decl, ok := s.codec.defs.Lookup(id)
		if !ok {
			continue
		}
		if _, err := s.codec.checkDerived(ex.TypeID, decl); err == nil {
			return id, true
		}
	}
	return "", false
}

// Dispatcher routes requests to the handlers of one interface, the server
// half of the generated service code.
type Dispatcher struct {
	*service
	handlers map[string]Handler
}

// NewDispatcher returns a dispatcher for the interface ifaceID. Every
// operation of the merged operation set needs a handler, and no handler may
// name an operation outside it.
func NewDispatcher(defs *grammar.Definitions, ifaceID string, handlers map[string]Handler) (*Dispatcher, error) {
	svc, err := newService(defs, ifaceID)
	if err != nil {
		return nil, err
	}
	for name := range handlers {
		if _, ok := svc.ops[name]; !ok {
			return nil, errors.Newf("handler %q does not match an operation of %s", name, ifaceID)
		}
	}
	for name := range svc.ops {
		if _, ok := handlers[name]; !ok {
			return nil, errors.WithHint(
				errors.Newf("operation %q of %s has no handler", name, ifaceID),
				"every operation of the interface and its bases must be implemented")
		}
	}
	return &Dispatcher{service: svc, handlers: handlers}, nil
}

// Operations returns the names the dispatcher accepts, sorted.
func (d *Dispatcher) Operations() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch decodes the request arguments, calls the handler and encodes its
// results. Failures are reported through the response status, never as a
// Go error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	op, ok := d.ops[req.Operation]
	if !ok {
		return Response{
			Status:  StatusUnknownOperation,
			Message: fmt.Sprintf("%s does not implement operation %q", grammar.TypeID(d.iface), req.Operation),
		}
	}
	if err := ctx.Err(); err != nil {
		return Response{Status: StatusUnhandledException, Message: err.Error()}
	}

	args, err := d.codec.DecodeMembers(op.Inputs(), req.Payload, true)
	if err != nil {
		return Response{Status: StatusInvalidData, Message: err.Error()}
	}

	results, err := d.handlers[op.Name](ctx, args)
	if err != nil {
		var exErr *ExceptionError
		if errors.As(err, &exErr) {
			if declared, ok := d.raises(op, exErr.Exception); ok {
				payload, encErr := d.codec.Encode(grammar.Named(declared), exErr.Exception)
				if encErr == nil {
					return Response{Status: StatusApplicationError, Payload: payload}
				}
				err = encErr
			}
		}
		return Response{Status: StatusUnhandledException, Message: err.Error()}
	}

	payload, err := d.codec.EncodeMembers(op.Outputs(), results, true)
	if err != nil {
		return Response{Status: StatusUnhandledException, Message: err.Error()}
	}
	return Response{Status: StatusOk, Payload: payload}
}

// Invoke lets a Dispatcher serve as the Invoker of a Proxy in the same process.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (Response, error) {
	return d.Dispatch(ctx, req), nil
}

// Proxy is the client half of the generated code: it encodes arguments,
// sends them through an Invoker and decodes the reply.
type Proxy struct {
	*service
	invoker Invoker
}

// NewProxy returns a proxy for the interface ifaceID.
func NewProxy(defs *grammar.Definitions, ifaceID string, invoker Invoker) (*Proxy, error) {
	svc, err := newService(defs, ifaceID)
	if err != nil {
		return nil, err
	}
	return &Proxy{service: svc, invoker: invoker}, nil
}

// Invoke calls operation with args. Operations unknown to the proxy's own
// definitions are still sent, with an empty payload, so the remote side
// decides how to answer.
func (p *Proxy) Invoke(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	op, known := p.ops[operation]
	req := Request{Operation: operation}
	if known {
		payload, err := p.codec.EncodeMembers(op.Inputs(), args, true)
		if err != nil {
			return nil, errors.Wrapf(err, "encode arguments of %s", operation)
		}
		req.Payload = payload
		req.Idempotent = op.Idempotent
	}

	resp, err := p.invoker.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case StatusOk:
		if !known {
			return nil, errors.Newf("reply to unknown operation %q", operation)
		}
		return p.codec.DecodeMembers(op.Outputs(), resp.Payload, true)
	case StatusApplicationError:
		if !known {
			return nil, errors.Newf("reply to unknown operation %q", operation)
		}
		return nil, p.decodeException(op, resp.Payload)
	default:
		return nil, &DispatchError{Status: resp.Status, Message: resp.Message}
	}
}

func (p *Proxy) decodeException(op *grammar.Operation, payload []byte) error {
	dec := wire.NewDecoder(payload)
	typeID, fields, unknown, err := p.codec.decodeSliced(dec, grammar.KindException)
	if err != nil {
		return errors.Wrap(err, "decode exception")
	}
	if err := dec.CheckEnd(); err != nil {
		return errors.Wrap(err, "decode exception")
	}
	ex := &ExceptionValue{TypeID: typeID, Fields: fields, UnknownSlices: unknown}
	if _, ok := p.raises(op, ex); !ok {
		return errors.Wrapf(wire.ErrInvalidData, "%s is not in the raises list of %s", typeID, op.Name)
	}
	return &RemoteException{Exception: ex}
}
