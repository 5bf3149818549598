package capi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

type fragmentInfoObj struct {
	uri    string
	cfg    *configObj
	loaded bool
	schema *format.Schema
	frags  []*format.Fragment
}

func FragmentInfoAlloc(ctx Ctx, uri string, fi *FragmentInfo) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		return put(kindFragmentInfo, &fragmentInfoObj{uri: uri}, fi)
	})
}

func FragmentInfoFree(fi *FragmentInfo) {
	drop(kindFragmentInfo, fi)
}

func withFragmentInfo(ctx Ctx, fi FragmentInfo, fn func(c *ctxObj, o *fragmentInfoObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := fi.obj()
		if err != nil {
			return err
		}
		return fn(c, o)
	})
}

// withFragment runs fn on fragment fid of a loaded fragment info.
func withFragment(ctx Ctx, fi FragmentInfo, fid uint32, fn func(o *fragmentInfoObj, f *format.Fragment) error) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		if !o.loaded {
			return errors.InvalidState(errors.PhaseNative, "FragmentInfo: Fragment info is not loaded")
		}
		if int(fid) >= len(o.frags) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"fragment info"}, int(fid), len(o.frags))
		}
		return fn(o, o.frags[fid])
	})
}

func FragmentInfoSetConfig(ctx Ctx, fi FragmentInfo, cfg Config) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		co, err := cfg.obj()
		if err != nil {
			return err
		}
		o.cfg = co.clone()
		return nil
	})
}

func FragmentInfoGetConfig(ctx Ctx, fi FragmentInfo, cfg *Config) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		src := o.cfg
		if src == nil {
			src = c.cfg
		}
		return put(kindConfig, src.clone(), cfg)
	})
}

// FragmentInfoLoad reads the metadata of every committed fragment.
func FragmentInfoLoad(ctx Ctx, fi FragmentInfo) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		s, err := format.LoadSchema(c.vfs, o.uri, math.MaxUint64)
		if err != nil {
			return err
		}
		frags, err := format.ListFragments(c.vfs, o.uri, 0, math.MaxUint64)
		if err != nil {
			return err
		}
		o.schema, o.frags, o.loaded = s, frags, true
		return nil
	})
}

func FragmentInfoGetFragmentNum(ctx Ctx, fi FragmentInfo, n *uint32) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		if !o.loaded {
			return errors.InvalidState(errors.PhaseNative, "FragmentInfo: Fragment info is not loaded")
		}
		*n = uint32(len(o.frags))
		return nil
	})
}

func FragmentInfoGetTotalCellNum(ctx Ctx, fi FragmentInfo, n *uint64) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		if !o.loaded {
			return errors.InvalidState(errors.PhaseNative, "FragmentInfo: Fragment info is not loaded")
		}
		*n = 0
		for _, f := range o.frags {
			*n += f.CellNum
		}
		return nil
	})
}

func FragmentInfoGetFragmentURI(ctx Ctx, fi FragmentInfo, fid uint32, uri *string) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*uri = f.URI
		return nil
	})
}

func FragmentInfoGetFragmentName(ctx Ctx, fi FragmentInfo, fid uint32, name *string) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*name = f.Name
		return nil
	})
}

func FragmentInfoGetDense(ctx Ctx, fi FragmentInfo, fid uint32, dense *bool) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*dense = f.ArrayType == format.Dense
		return nil
	})
}

func FragmentInfoGetSparse(ctx Ctx, fi FragmentInfo, fid uint32, sparse *bool) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*sparse = f.ArrayType == format.Sparse
		return nil
	})
}

func FragmentInfoGetTimestampRange(ctx Ctx, fi FragmentInfo, fid uint32, start, end *uint64) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*start, *end = f.T1, f.T2
		return nil
	})
}

func FragmentInfoGetCellNum(ctx Ctx, fi FragmentInfo, fid uint32, n *uint64) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*n = f.CellNum
		return nil
	})
}

// FragmentInfoGetFragmentSize returns the stored bytes of the fragment.
func FragmentInfoGetFragmentSize(ctx Ctx, fi FragmentInfo, fid uint32, size *uint64) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*size = f.Size
		return nil
	})
}

// fragmentVersion reads the format version from a fragment name.
func fragmentVersion(name string) uint32 {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return 0
	}
	v, err := strconv.ParseUint(name[i+1:], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func FragmentInfoGetVersion(ctx Ctx, fi FragmentInfo, fid uint32, version *uint32) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*version = fragmentVersion(f.Name)
		return nil
	})
}

func FragmentInfoGetArraySchemaName(ctx Ctx, fi FragmentInfo, fid uint32, name *string) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		*name = f.SchemaName
		return nil
	})
}

func (o *fragmentInfoObj) nonEmpty(f *format.Fragment, did int, domain []byte) error {
	if did < 0 || did >= len(o.schema.Dimensions) || did >= len(f.NonEmpty) {
		return errors.OutOfBounds(errors.PhaseNative, []string{"fragment info", "domain"}, did, len(o.schema.Dimensions))
	}
	r := f.NonEmpty[did]
	if len(domain) < len(r) {
		return errors.InvalidInput(errors.PhaseNative, "FragmentInfo: Output buffer holds %d bytes, need %d", len(domain), len(r))
	}
	copy(domain, r)
	return nil
}

// FragmentInfoGetNonEmptyDomainFromIndex writes the lower and upper bound of
// dimension did of fragment fid into domain.
func FragmentInfoGetNonEmptyDomainFromIndex(ctx Ctx, fi FragmentInfo, fid, did uint32, domain []byte) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		return o.nonEmpty(f, int(did), domain)
	})
}

func FragmentInfoGetNonEmptyDomainFromName(ctx Ctx, fi FragmentInfo, fid uint32, name string, domain []byte) Status {
	return withFragment(ctx, fi, fid, func(o *fragmentInfoObj, f *format.Fragment) error {
		_, did := o.schema.Dimension(name)
		if did < 0 {
			return errors.NotFound(errors.PhaseNative, "dimension", name)
		}
		return o.nonEmpty(f, did, domain)
	})
}

func FragmentInfoDumpStr(ctx Ctx, fi FragmentInfo, out *string) Status {
	return withFragmentInfo(ctx, fi, func(c *ctxObj, o *fragmentInfoObj) error {
		if !o.loaded {
			return errors.InvalidState(errors.PhaseNative, "FragmentInfo: Fragment info is not loaded")
		}
		var b strings.Builder
		fmt.Fprintf(&b, "- Fragment num: %d\n", len(o.frags))
		for i, f := range o.frags {
			kind := "dense"
			if f.ArrayType == format.Sparse {
				kind = "sparse"
			}
			fmt.Fprintf(&b, "- Fragment #%d:\n", i+1)
			fmt.Fprintf(&b, "  > URI: %s\n", f.URI)
			fmt.Fprintf(&b, "  > Type: %s\n", kind)
			fmt.Fprintf(&b, "  > Timestamp range: [%d, %d]\n", f.T1, f.T2)
			fmt.Fprintf(&b, "  > Cell num: %d\n", f.CellNum)
			fmt.Fprintf(&b, "  > Size: %d\n", f.Size)
			fmt.Fprintf(&b, "  > Format version: %d\n", fragmentVersion(f.Name))
			for d, dim := range o.schema.Dimensions {
				if d >= len(f.NonEmpty) {
					break
				}
				n := dim.Datatype.Size()
				r := f.NonEmpty[d]
				fmt.Fprintf(&b, "  > Non-empty domain %s: [%s, %s]\n", dim.Name,
					format.FormatValue(dim.Datatype, r[:n]), format.FormatValue(dim.Datatype, r[n:]))
			}
		}
		*out = b.String()
		return nil
	})
}
