/*
Package objcmsg sends messages to Objective-C objects and receives messages
from them.

Objective-C resolves every method call by name when the call happens. A call
is a message: a receiver, a selector naming the method, and arguments. The
runtime looks up the selector in the receiver's class and jumps to whatever
function it finds. This package lets Go code take part in that exchange in
both directions.

The native side is a Runtime. Package darwin provides the one backed by the
system runtime on macOS, loaded without cgo, and package testutils provides a
simulated one with a small set of Foundation classes for tests and for
platforms without Objective-C. A Bridge ties a Runtime to its Config and to
the machinery in this package:

	b, err := darwin.New(objcmsg.DefaultConfig())
	if err != nil {
		return err
	}
	c := b.Client()
	s, err := c.Send("NSString", "stringWithUTF8String:", "hello")

# Sending Messages

Client.Send asks the receiver for the method signature of the selector, then
converts each argument to the type its encoding declares, calls the native
dispatch function, and converts the result back. Type encodings are the
compact strings the Objective-C compiler records for every method, such as
"v@:q" for a method taking a long long and returning nothing; package typenc
parses them. A Mapper routes each value to a converter by the leading
character of its encoding:

	Scalar     integers, booleans, floats, classes, selectors
	String     C strings, in the configured encoding
	Object     objects; NSStrings become Go strings
	Pointer    pointers, passed as addresses
	Structure  structures, passed and returned by value

Conversions can be switched off per Client with WithCoercion, in which case
arguments pass as given and results come back as raw words. The Raw client of
a Bridge has both directions off.

Objects that do not become Go values come back as Wrappers. The Cache keeps
one canonical Wrapper per native object while its retain count is positive,
so comparing Wrappers compares identity. Releasing a Wrapper to zero evicts
it without touching the native object; Wrapper.Dispose can also deallocate.

A Trampoline performs the calls. Variadic native dispatch cannot be called
portably through one Go signature, so the Trampoline binds one procedure per
call shape, that is per return category, argument count, and pattern of
structure arguments, and picks the right one for each send. On x86_64, floats
and large structures are returned through separate entry points; arm64 uses a
single entry point for everything.

# Chains

A Message is one step of a chain. SendChain sends each message in turn, with
later messages able to use the result of the previous one as their receiver.
Each message records its status, result, and error, and Before and After
hooks can skip or cancel steps. BuildChain makes a chain from a flat list:

	msgs, err := c.BuildChain(
		"NSMutableArray", "array", nil,
		"_", "addObject:", "x",
	)

# Receiving Messages

A Go value becomes a native object by implementing Recipient, usually by
embedding Base, and registering with Bridge.Register or Client.NewObject.
Native code that sends it a message reaches the Router, which decodes the
invocation, finds the Go handler registered for the selector, converts the
arguments, calls the handler, and stores its result in the invocation.
Selectors without handlers go to the recipient's parent object, if it has
one; otherwise they fail with SelectorNotHandledError.

Handlers are listed in the recipient's Handlers method:

	func (*Counter) Handlers(t *objcmsg.Table) {
		t.Msg("increment:", (*Counter).Increment, objcmsg.Types("v@:q"))
		t.Msg("count", (*Counter).Count, objcmsg.Like("NSArray.count"))
	}

The method signature of a handler comes from Types, from Like, from the
parent, or failing those from the Go types of the handler itself. Tables can
also be described by YAML manifests, which the objcfn command generates.

# Errors

Every failure has its own error type, and each type matches a sentinel under
errors.Is, e.g. errors.Is(err, ErrUnknownSelector). Errors raised by handlers,
including panics, arrive as HandlerInvocationFailure, which unwraps to the
cause. A failure handling a message from native code cannot reach its
sender, which sees a zero result; Runtimes record such failures in a
ForwardFailures.

# Logging

The package logs through zap. It is silent unless SetLogger installs a
logger; sends and dispatches log at debug level.
*/
package objcmsg
