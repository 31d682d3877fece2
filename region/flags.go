package region

import "strings"

// Flags is the role bit set of a region. Bits are independent; FlagNone marks
// an ordinary region.
type Flags uint8

const (
	FlagNone                       Flags = 0
	FlagExceptionHandlerEntrypoint Flags = 1 << 0
	FlagExceptionHandlerExitpoint  Flags = 1 << 1
	FlagExceptionHandlerSwitch     Flags = 1 << 2
	FlagCleanupEntrypoint          Flags = 1 << 3
	FlagCleanupExitpoint           Flags = 1 << 4
)

const (
	entryFlags = FlagExceptionHandlerEntrypoint | FlagCleanupEntrypoint
	exitFlags  = FlagExceptionHandlerExitpoint | FlagCleanupExitpoint
	allFlags   = entryFlags | exitFlags | FlagExceptionHandlerSwitch
)

var flagNames = [...]struct {
	flag Flags
	name string
}{
	{FlagExceptionHandlerEntrypoint, "eh-entry"},
	{FlagExceptionHandlerExitpoint, "eh-exit"},
	{FlagExceptionHandlerSwitch, "eh-switch"},
	{FlagCleanupEntrypoint, "cleanup-entry"},
	{FlagCleanupExitpoint, "cleanup-exit"},
}

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Any reports whether at least one bit of mask is set.
func (f Flags) Any(mask Flags) bool {
	return f&mask != 0
}

// Names returns the short names of the set bits in declaration order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	if f == FlagNone {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// ParseFlag maps a short flag name ("eh-entry", "cleanup-exit", ...) to its bit.
func ParseFlag(name string) (Flags, bool) {
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return FlagNone, false
}

// exitFor returns the exit bits that close the entry bits in f.
func exitFor(f Flags) Flags {
	var exit Flags
	if f.Any(FlagExceptionHandlerEntrypoint) {
		exit |= FlagExceptionHandlerExitpoint
	}
	if f.Any(FlagCleanupEntrypoint) {
		exit |= FlagCleanupExitpoint
	}
	return exit
}

// EdgeKind classifies a control edge.
type EdgeKind uint8

const (
	// EdgeNormal is ordinary control transfer.
	EdgeNormal EdgeKind = iota
	// EdgeInvoke leads from a protected region to the exception-handler-switch
	// that runs if the region raises.
	EdgeInvoke
	// EdgeHandler leads from a switch or cleanup entry into a handler body.
	EdgeHandler
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeNormal:
		return "normal"
	case EdgeInvoke:
		return "invoke"
	case EdgeHandler:
		return "handler"
	}
	return "unknown"
}

// Variant discriminates the three region representations.
type Variant uint8

const (
	// BasicBlock is a leaf supplied by the caller.
	BasicBlock Variant = iota
	// Composite is an ordered list of child regions absorbed by one rule.
	Composite
	// Alias carries one region of the previous level into the next one.
	Alias
)

func (v Variant) String() string {
	switch v {
	case BasicBlock:
		return "block"
	case Composite:
		return "composite"
	case Alias:
		return "alias"
	}
	return "unknown"
}

// Pattern names the rule that produced a composite.
type Pattern uint8

const (
	PatternNone Pattern = iota
	PatternSequence
	PatternSwitch
	PatternProtected
	PatternHandlerSwitch
	PatternHandlerBody
	PatternDoWhile
	PatternWhile
	// PatternUnordered wraps the nodes left over at the fixed point when more
	// than one remains; children are not in structural order.
	PatternUnordered
)

func (p Pattern) String() string {
	switch p {
	case PatternNone:
		return "none"
	case PatternSequence:
		return "sequence"
	case PatternSwitch:
		return "switch"
	case PatternProtected:
		return "protected"
	case PatternHandlerSwitch:
		return "handler-switch"
	case PatternHandlerBody:
		return "handler-body"
	case PatternDoWhile:
		return "do-while"
	case PatternWhile:
		return "while"
	case PatternUnordered:
		return "unordered"
	}
	return "unknown"
}
