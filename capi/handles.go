package capi

import (
	"math"

	"github.com/wippyai/tiledb-go/capi/internal/stats"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

type kind uint32

const (
	kindCtx kind = iota + 1
	kindConfig
	kindConfigIter
	kindError
	kindArray
	kindSchema
	kindDomain
	kindDimension
	kindAttribute
	kindFilter
	kindFilterList
	kindQuery
	kindSubarray
	kindGroup
	kindFragmentInfo
	kindEnumeration
	kindEvolution
	kindVFS
	kindVFSFh
)

var kindNames = map[kind]string{
	kindCtx:          "context",
	kindConfig:       "config",
	kindConfigIter:   "config iterator",
	kindError:        "error",
	kindArray:        "array",
	kindSchema:       "array schema",
	kindDomain:       "domain",
	kindDimension:    "dimension",
	kindAttribute:    "attribute",
	kindFilter:       "filter",
	kindFilterList:   "filter list",
	kindQuery:        "query",
	kindSubarray:     "subarray",
	kindGroup:        "group",
	kindFragmentInfo: "fragment info",
	kindEnumeration:  "enumeration",
	kindEvolution:    "array schema evolution",
	kindVFS:          "vfs",
	kindVFSFh:        "vfs file handle",
}

// objects holds every live engine object; pointers are table slots.
var objects = resource.NewTable()

func init() {
	objects.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if s := stats.Global(); s != nil {
			s.Object(kindNames[kind(e.TypeID)], e.Type == resource.EventCreated)
		}
	}))
}

func put[P ~uintptr](k kind, v any, out *P) error {
	if out == nil {
		return errors.InvalidInput(errors.PhaseNative, "%s output pointer is nil", kindNames[k])
	}
	slot := objects.Insert(uint32(k), v)
	if slot == 0 {
		return errors.AllocationFailed(errors.PhaseAlloc, kindNames[k])
	}
	*out = P(slot)
	return nil
}

func get[T any, P ~uintptr](k kind, p P) (T, error) {
	var zero T
	if p == 0 || uint64(p) > math.MaxUint32 {
		return zero, errors.InvalidInput(errors.PhaseNative, "invalid %s handle", kindNames[k])
	}
	v, ok := resource.Typed[T](objects, uint32(k)).Get(resource.Slot(p))
	if !ok {
		return zero, errors.InvalidInput(errors.PhaseNative, "invalid %s handle", kindNames[k])
	}
	return v, nil
}

func drop[P ~uintptr](k kind, p *P) {
	if p == nil || *p == 0 || uint64(*p) > math.MaxUint32 {
		return
	}
	objects.RemoveTyped(resource.Slot(*p), uint32(k))
	*p = 0
}

func (p Ctx) obj() (*ctxObj, error)                   { return get[*ctxObj](kindCtx, p) }
func (p Config) obj() (*configObj, error)             { return get[*configObj](kindConfig, p) }
func (p ConfigIter) obj() (*configIterObj, error)     { return get[*configIterObj](kindConfigIter, p) }
func (p Error) obj() (*errorObj, error)               { return get[*errorObj](kindError, p) }
func (p Array) obj() (*arrayObj, error)               { return get[*arrayObj](kindArray, p) }
func (p ArraySchema) obj() (*schemaObj, error)        { return get[*schemaObj](kindSchema, p) }
func (p Domain) obj() (*domainObj, error)             { return get[*domainObj](kindDomain, p) }
func (p Dimension) obj() (*dimensionObj, error)       { return get[*dimensionObj](kindDimension, p) }
func (p Attribute) obj() (*attributeObj, error)       { return get[*attributeObj](kindAttribute, p) }
func (p Filter) obj() (*filterObj, error)             { return get[*filterObj](kindFilter, p) }
func (p FilterList) obj() (*filterListObj, error)     { return get[*filterListObj](kindFilterList, p) }
func (p Query) obj() (*queryObj, error)               { return get[*queryObj](kindQuery, p) }
func (p Subarray) obj() (*subarrayObj, error)         { return get[*subarrayObj](kindSubarray, p) }
func (p Group) obj() (*groupObj, error)               { return get[*groupObj](kindGroup, p) }
func (p FragmentInfo) obj() (*fragmentInfoObj, error) { return get[*fragmentInfoObj](kindFragmentInfo, p) }
func (p Enumeration) obj() (*enumerationObj, error)   { return get[*enumerationObj](kindEnumeration, p) }
func (p ArraySchemaEvolution) obj() (*evolutionObj, error) {
	return get[*evolutionObj](kindEvolution, p)
}
func (p VFS) obj() (*vfsObj, error)     { return get[*vfsObj](kindVFS, p) }
func (p VFSFh) obj() (*vfsFhObj, error) { return get[*vfsFhObj](kindVFSFh, p) }

// LiveObjects returns the number of allocated objects per object kind.
func LiveObjects() map[string]int {
	out := make(map[string]int)
	for k, n := range objects.CountByType() {
		out[kindNames[kind(k)]] = n
	}
	return out
}

// LiveObjectCount returns the total number of allocated objects.
func LiveObjectCount() int {
	return objects.Len()
}
