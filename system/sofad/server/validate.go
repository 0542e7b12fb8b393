package server

import (
	"fmt"
	"path"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/signadot/sofa/debug"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/api"
)

// ruleEnv is what a validation rule sees. Numbers are float64.
type ruleEnv struct {
	DB      string         `expr:"db"`
	ID      string         `expr:"id"`
	Doc     map[string]any `expr:"doc"`
	Old     map[string]any `expr:"old"`
	Deleted bool           `expr:"deleted"`
}

func compileRule(src string) (*vm.Program, error) {
	if src == "" {
		return nil, fmt.Errorf("empty rule")
	}
	return expr.Compile(src, expr.Env(ruleEnv{}), expr.AsBool())
}

type rule struct {
	name      string
	databases string
	message   string
	program   *vm.Program
}

type rules []rule

func compileRules(cfgs []*ValidatorConfig) (rules, error) {
	res := make(rules, 0, len(cfgs))
	for i, c := range cfgs {
		prog, err := compileRule(c.Rule)
		if err != nil {
			return nil, fmt.Errorf("validators[%d] %s: %w", i, c.Name, err)
		}
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("validators[%d]", i)
		}
		res = append(res, rule{name: name, databases: c.Databases, message: c.Message, program: prog})
	}
	return res, nil
}

func (r *rule) applies(db string) bool {
	if r.databases == "" {
		return true
	}
	ok, _ := path.Match(r.databases, db)
	return ok
}

// check runs every rule matching db against a pending write. It has the
// signature of storage.Validator.
func (rs rules) check(db, id string, prev *doc.Document, next doc.Document) error {
	if len(rs) == 0 {
		return nil
	}
	env := ruleEnv{
		DB:      db,
		ID:      id,
		Doc:     ruleValue(next.Value()).(map[string]any),
		Deleted: next.Deleted(),
	}
	if prev != nil {
		env.Old = ruleValue(prev.Value()).(map[string]any)
	}
	for i := range rs {
		r := &rs[i]
		if !r.applies(db) {
			continue
		}
		out, err := expr.Run(r.program, env)
		if debug.Validate() {
			debug.Logf("validate %s %s/%s: %v %v\n", r.name, db, id, out, err)
		}
		if err != nil {
			return api.NewError(api.ErrCodeForbidden, fmt.Sprintf("%s: %v", r.name, err))
		}
		if ok, _ := out.(bool); !ok {
			msg := r.message
			if msg == "" {
				msg = fmt.Sprintf("rejected by %s", r.name)
			}
			return api.NewError(api.ErrCodeForbidden, msg)
		}
	}
	return nil
}

func ruleValue(v *doc.Value) any {
	switch v.Type {
	case doc.NumberType:
		f, _ := v.Float64()
		return f
	case doc.ArrayType:
		res := make([]any, len(v.Values))
		for i, elt := range v.Values {
			res[i] = ruleValue(elt)
		}
		return res
	case doc.ObjectType:
		res := make(map[string]any, len(v.Fields))
		for i, f := range v.Fields {
			res[f] = ruleValue(v.Values[i])
		}
		return res
	}
	return v.Interface()
}
