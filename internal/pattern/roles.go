package pattern

import (
	"ffigen/internal/naming"
	"ffigen/internal/types"
)

// assignRoles classifies the parameters and return of function i. Lifecycle
// membership has already been decided by classifyServices.
func (c *classifier) assignRoles(i int, fn *types.Function) {
	r := &c.roles[i]
	r.Params = make([]types.ParamRole, len(fn.Params))

	switch r.Kind {
	case types.FnCtor:
		opaque := c.services[r.Service].Opaque
		for j, p := range fn.Params {
			if c.isOutHandle(p.Type, opaque) {
				r.Params[j] = types.ParamOutHandle
			}
		}
	case types.FnDtor:
		r.Params[0] = types.ParamOutHandle
	case types.FnMethod:
		r.Params[0] = types.ParamSelf
	}
	if r.Service >= 0 {
		name, _, _ := c.g.NominalName(c.services[r.Service].Opaque)
		r.Method = naming.StripServicePrefix(name, fn.Name)
	}

	for j, p := range fn.Params {
		if r.Params[j] == types.ParamPlain && c.isAscii(p.Type, p.Doc) {
			r.Params[j] = types.ParamAscii
		}
	}

	for j, p := range fn.Params {
		if r.Params[j] != types.ParamPlain || c.g.Kind(p.Type) != types.KindFnPointer {
			continue
		}
		r.Params[j] = types.ParamCallback
		site := types.CallbackSite{Signature: p.Type, Once: fn.Annotations.Async}
		if j+1 < len(fn.Params) &&
			r.Params[j+1] == types.ParamPlain &&
			c.isPointer(fn.Params[j+1].Type) &&
			c.carriesContext(p.Type) {
			site.Context = true
			r.Params[j+1] = types.ParamContext
		}
		if r.Callbacks == nil {
			r.Callbacks = make(map[int]types.CallbackSite)
		}
		r.Callbacks[j] = site
	}

	r.Checked = int(fn.Ret) < len(c.patterns) && c.patterns[fn.Ret].Kind == types.PatternResult
	r.RetAscii = c.isAscii(fn.Ret, fn.RetDoc)
}

// carriesContext reports whether the callback signature ends in a pointer
// that can carry user data.
func (c *classifier) carriesContext(sig types.TypeID) bool {
	fi, ok := c.g.FnPointer(sig)
	if !ok || len(fi.Params) == 0 {
		return false
	}
	return c.isPointer(fi.Params[len(fi.Params)-1])
}
