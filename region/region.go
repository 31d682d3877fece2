package region

// ID addresses a region in its arena. Leaf IDs are assigned by the Builder
// in AddBlock order; lifting appends composites and aliases after them.
type ID int32

// NoRegion is the absent region.
const NoRegion ID = -1

// edgeList indexes the per-region edge lists.
type edgeList uint8

const (
	allPreds edgeList = iota
	allSuccs
	normalPreds
	normalSuccs
	invokePreds
	invokeSuccs
	handlerPreds
	handlerSuccs
	edgeListCount
)

// Region is one node of a control-flow level: a basic block, a composite of
// absorbed regions, or an alias of a region from the previous level.
//
// Regions are immutable once their level is built. Slices returned by the
// accessors are shared with the arena and must not be modified.
type Region struct {
	data      any
	label     string
	children  []ID
	edges     [edgeListCount][]ID
	wrapped   ID
	protected ID
	variant   Variant
	flags     Flags
	pattern   Pattern
	entry     bool
}

// Variant returns the representation discriminant.
func (r *Region) Variant() Variant { return r.variant }

// Flags returns the role bit set.
func (r *Region) Flags() Flags { return r.flags }

// Label returns the caller-supplied block label. Empty for composites and aliases.
func (r *Region) Label() string { return r.label }

// Data returns the caller payload attached to a basic block.
func (r *Region) Data() any { return r.data }

// Pattern returns the rule that built a composite, PatternNone otherwise.
func (r *Region) Pattern() Pattern { return r.pattern }

// Children returns the ordered children of a composite.
func (r *Region) Children() []ID { return r.children }

// Wrapped returns the region an alias carries, NoRegion for other variants.
func (r *Region) Wrapped() ID { return r.wrapped }

// Protected returns the protected child of a PatternProtected composite.
// The remaining children are its handlers.
func (r *Region) Protected() (ID, bool) {
	return r.protected, r.protected != NoRegion
}

// IsFunctionEntrypoint reports whether the region is, or contains, the
// function entry block.
func (r *Region) IsFunctionEntrypoint() bool { return r.entry }

func (r *Region) Predecessors() []ID        { return r.edges[allPreds] }
func (r *Region) Successors() []ID          { return r.edges[allSuccs] }
func (r *Region) NormalPredecessors() []ID  { return r.edges[normalPreds] }
func (r *Region) NormalSuccessors() []ID    { return r.edges[normalSuccs] }
func (r *Region) InvokePredecessors() []ID  { return r.edges[invokePreds] }
func (r *Region) InvokeSuccessors() []ID    { return r.edges[invokeSuccs] }
func (r *Region) HandlerPredecessors() []ID { return r.edges[handlerPreds] }
func (r *Region) HandlerSuccessors() []ID   { return r.edges[handlerSuccs] }

// IsNormal reports whether the region carries no role flags.
func (r *Region) IsNormal() bool { return r.flags == FlagNone }

// IsSelfContainedExceptionHandler reports whether the region is both the
// entry and the exit of an exception handler.
func (r *Region) IsSelfContainedExceptionHandler() bool {
	return r.flags.Has(FlagExceptionHandlerEntrypoint | FlagExceptionHandlerExitpoint)
}

// IsSelfContainedCleanup reports whether the region is both the entry and
// the exit of a cleanup block.
func (r *Region) IsSelfContainedCleanup() bool {
	return r.flags.Has(FlagCleanupEntrypoint | FlagCleanupExitpoint)
}

// HasAbnormalSuccessors reports whether any successor is reached through an
// invoke or handler edge.
func (r *Region) HasAbnormalSuccessors() bool {
	return len(r.edges[allSuccs]) != len(r.edges[normalSuccs])
}

// InvokeTarget returns the single invoke successor, or NoRegion when there is
// none. Graphs with several invoke successors on one block are rejected by
// Validate; on composites the first one is returned.
func (r *Region) InvokeTarget() ID {
	if len(r.edges[invokeSuccs]) == 0 {
		return NoRegion
	}
	return r.edges[invokeSuccs][0]
}

func appendUnique(list []ID, id ID) []ID {
	for _, x := range list {
		if x == id {
			return list
		}
	}
	return append(list, id)
}

func contains(list []ID, id ID) bool {
	for _, x := range list {
		if x == id {
			return true
		}
	}
	return false
}
