package exec

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// syncItem is the kind-agnostic view of a resource the diff/apply logic
// operates on — every kind's Config is reduced to a plain map so one diff
// algorithm covers all twelve synced kinds (see tomlcodec package doc comment).
type syncItem struct {
	Id          string
	Name        string
	Description string
	Tags        []string // tag ids, resolved
	Config      map[string]any
}

// kindAdapter wires the generic sync engine to one kind's Store methods.
// create/update operate in terms of the generic syncItem shape; the closures
// do the json round-trip into the concrete Config type.
type kindAdapter struct {
	kind   domain.Kind
	list   func() ([]syncItem, error)
	create func(item syncItem) error
	update func(id string, item syncItem) error
	delete func(id string) error

	// defaults is the type-zero value of this kind's Config, keyed by json
	// field name, every field present regardless of `omitempty` (spec §4.8
	// "project the partial config onto the defaults of the current config
	// so a field absent in TOML reverts to default"). diffKind overlays an
	// incoming partial entry on top of this, never on top of the currently
	// stored value, so a field a sync removes from the TOML reverts instead
	// of sticking at whatever was last persisted.
	defaults map[string]any
}

// zeroConfigMap reflects over zero's exported fields and returns a map from
// each field's json tag name to its zero value, bypassing `omitempty` (which
// would otherwise drop exactly the fields a revert-to-default needs).
func zeroConfigMap(zero any) map[string]any {
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	v := reflect.New(t).Elem()

	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.SplitN(tag, ",", 2)[0]

		data, err := json.Marshal(v.Field(i).Interface())
		if err != nil {
			continue
		}
		var val any
		_ = json.Unmarshal(data, &val)
		out[name] = val
	}
	return out
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	return m
}

func fromMap(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func metaItem(id, name, desc string, tags []string, cfg any) syncItem {
	return syncItem{Id: id, Name: name, Description: desc, Tags: tags, Config: toMap(cfg)}
}

// syncAdapters builds the per-kind adapter table covering every kind the
// execution order (spec §4.8) names, in that order.
func (e *Engine) syncAdapters() []kindAdapter {
	return []kindAdapter{
		{
			kind:     domain.KindVariable,
			defaults: map[string]any{"value": ""},
			list: func() ([]syncItem, error) {
				vs, err := e.Store.ListVariables()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(vs))
				for i, v := range vs {
					out[i] = metaItem(v.Id, v.Name, v.Description, v.Tags, map[string]any{"value": v.Value})
				}
				return out, nil
			},
			create: func(item syncItem) error {
				v := &domain.Variable{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				v.Value, _ = item.Config["value"].(string)
				return e.Store.CreateVariable(v)
			},
			update: func(id string, item syncItem) error {
				v, err := e.Store.GetVariableByName(item.Name)
				if err != nil {
					return err
				}
				v.Description, v.Tags = item.Description, item.Tags
				if val, ok := item.Config["value"].(string); ok {
					v.Value = val
				}
				return e.Store.UpdateVariable(v)
			},
			delete: func(id string) error { return e.Store.DeleteVariable(id) },
		},
		{
			kind:     domain.KindUserGroup,
			defaults: map[string]any{"users": nil, "permissions": nil},
			list: func() ([]syncItem, error) {
				gs, err := e.Store.ListUserGroups()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(gs))
				for i, g := range gs {
					out[i] = metaItem(g.Id, g.Name, g.Description, g.Tags, map[string]any{
						"users": g.Users, "permissions": g.Permissions,
					})
				}
				return out, nil
			},
			create: func(item syncItem) error {
				g := &domain.UserGroup{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, g)
				if err := e.Store.CreateUserGroup(g); err != nil {
					return err
				}
				return e.syncPermissions(g)
			},
			update: func(id string, item syncItem) error {
				g, err := e.Store.GetUserGroupByName(item.Name)
				if err != nil {
					return err
				}
				g.Description, g.Tags = item.Description, item.Tags
				fromMap(item.Config, g)
				if err := e.Store.UpdateUserGroup(g); err != nil {
					return err
				}
				return e.syncPermissions(g)
			},
			delete: func(id string) error { return e.Store.DeleteUserGroup(id) },
		},
		{
			kind:     domain.KindResourceSync,
			defaults: zeroConfigMap(domain.ResourceSyncConfig{}),
			list: func() ([]syncItem, error) {
				rs, err := e.Store.ListResourceSyncs()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(rs))
				for i, r := range rs {
					out[i] = metaItem(r.Id, r.Name, r.Description, r.Tags, r.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				r := &domain.ResourceSync{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &r.Config)
				return e.Store.CreateResourceSync(r)
			},
			update: func(id string, item syncItem) error {
				r, err := e.Store.GetResourceSyncByName(item.Name)
				if err != nil {
					return err
				}
				r.Description, r.Tags = item.Description, item.Tags
				fromMap(item.Config, &r.Config)
				return e.Store.UpdateResourceSync(r)
			},
			delete: func(id string) error { return e.Store.DeleteResourceSync(id) },
		},
		{
			kind:     domain.KindServer,
			defaults: zeroConfigMap(domain.ServerConfig{}),
			list: func() ([]syncItem, error) {
				ss, err := e.Store.ListServers()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(ss))
				for i, s := range ss {
					out[i] = metaItem(s.Id, s.Name, s.Description, s.Tags, s.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				s := &domain.Server{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &s.Config)
				return e.Store.CreateServer(s)
			},
			update: func(id string, item syncItem) error {
				s, err := e.Store.GetServerByName(item.Name)
				if err != nil {
					return err
				}
				s.Description, s.Tags = item.Description, item.Tags
				fromMap(item.Config, &s.Config)
				return e.Store.UpdateServer(s)
			},
			delete: func(id string) error { return e.Store.DeleteServer(id) },
		},
		{
			kind:     domain.KindAlerter,
			defaults: zeroConfigMap(domain.AlerterConfig{}),
			list: func() ([]syncItem, error) {
				as, err := e.Store.ListAlerters()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(as))
				for i, a := range as {
					out[i] = metaItem(a.Id, a.Name, a.Description, a.Tags, a.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				a := &domain.Alerter{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &a.Config)
				return e.Store.CreateAlerter(a)
			},
			update: func(id string, item syncItem) error {
				a, err := e.Store.GetAlerter(id)
				if err != nil {
					return err
				}
				a.Description, a.Tags = item.Description, item.Tags
				fromMap(item.Config, &a.Config)
				return e.Store.UpdateAlerter(a)
			},
			delete: func(id string) error { return e.Store.DeleteAlerter(id) },
		},
		{
			kind:     domain.KindAction,
			defaults: zeroConfigMap(domain.ActionConfig{}),
			list: func() ([]syncItem, error) {
				as, err := e.Store.ListActions()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(as))
				for i, a := range as {
					out[i] = metaItem(a.Id, a.Name, a.Description, a.Tags, a.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				a := &domain.Action{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &a.Config)
				return e.Store.CreateAction(a)
			},
			update: func(id string, item syncItem) error {
				a, err := e.Store.GetActionByName(item.Name)
				if err != nil {
					return err
				}
				a.Description, a.Tags = item.Description, item.Tags
				fromMap(item.Config, &a.Config)
				return e.Store.UpdateAction(a)
			},
			delete: func(id string) error { return e.Store.DeleteAction(id) },
		},
		{
			kind:     domain.KindBuilder,
			defaults: zeroConfigMap(domain.BuilderConfig{}),
			list: func() ([]syncItem, error) {
				bs, err := e.Store.ListBuilders()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(bs))
				for i, b := range bs {
					out[i] = metaItem(b.Id, b.Name, b.Description, b.Tags, b.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				b := &domain.Builder{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &b.Config)
				return e.Store.CreateBuilder(b)
			},
			update: func(id string, item syncItem) error {
				b, err := e.Store.GetBuilderByName(item.Name)
				if err != nil {
					return err
				}
				b.Description, b.Tags = item.Description, item.Tags
				fromMap(item.Config, &b.Config)
				return e.Store.UpdateBuilder(b)
			},
			delete: func(id string) error { return e.Store.DeleteBuilder(id) },
		},
		{
			kind:     domain.KindRepo,
			defaults: zeroConfigMap(domain.RepoConfig{}),
			list: func() ([]syncItem, error) {
				rs, err := e.Store.ListRepos()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(rs))
				for i, r := range rs {
					out[i] = metaItem(r.Id, r.Name, r.Description, r.Tags, r.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				r := &domain.Repo{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &r.Config)
				return e.Store.CreateRepo(r)
			},
			update: func(id string, item syncItem) error {
				r, err := e.Store.GetRepoByName(item.Name)
				if err != nil {
					return err
				}
				r.Description, r.Tags = item.Description, item.Tags
				fromMap(item.Config, &r.Config)
				return e.Store.UpdateRepo(r)
			},
			delete: func(id string) error { return e.Store.DeleteRepo(id) },
		},
		{
			kind:     domain.KindBuild,
			defaults: zeroConfigMap(domain.BuildConfig{}),
			list: func() ([]syncItem, error) {
				bs, err := e.Store.ListBuilds()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(bs))
				for i, b := range bs {
					out[i] = metaItem(b.Id, b.Name, b.Description, b.Tags, b.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				b := &domain.Build{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &b.Config)
				return e.Store.CreateBuild(b)
			},
			update: func(id string, item syncItem) error {
				b, err := e.Store.GetBuildByName(item.Name)
				if err != nil {
					return err
				}
				b.Description, b.Tags = item.Description, item.Tags
				fromMap(item.Config, &b.Config)
				return e.Store.UpdateBuild(b)
			},
			delete: func(id string) error { return e.Store.DeleteBuild(id) },
		},
		{
			kind:     domain.KindDeployment,
			defaults: zeroConfigMap(domain.DeploymentConfig{}),
			list: func() ([]syncItem, error) {
				ds, err := e.Store.ListDeployments()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(ds))
				for i, d := range ds {
					out[i] = metaItem(d.Id, d.Name, d.Description, d.Tags, d.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				d := &domain.Deployment{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &d.Config)
				return e.Store.CreateDeployment(d)
			},
			update: func(id string, item syncItem) error {
				d, err := e.Store.GetDeploymentByName(item.Name)
				if err != nil {
					return err
				}
				d.Description, d.Tags = item.Description, item.Tags
				fromMap(item.Config, &d.Config)
				return e.Store.UpdateDeployment(d)
			},
			delete: func(id string) error { return e.Store.DeleteDeployment(id) },
		},
		{
			kind:     domain.KindStack,
			defaults: zeroConfigMap(domain.StackConfig{}),
			list: func() ([]syncItem, error) {
				ss, err := e.Store.ListStacks()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(ss))
				for i, s := range ss {
					out[i] = metaItem(s.Id, s.Name, s.Description, s.Tags, s.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				s := &domain.Stack{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &s.Config)
				return e.Store.CreateStack(s)
			},
			update: func(id string, item syncItem) error {
				s, err := e.Store.GetStackByName(item.Name)
				if err != nil {
					return err
				}
				s.Description, s.Tags = item.Description, item.Tags
				fromMap(item.Config, &s.Config)
				return e.Store.UpdateStack(s)
			},
			delete: func(id string) error { return e.Store.DeleteStack(id) },
		},
		{
			kind:     domain.KindProcedure,
			defaults: zeroConfigMap(domain.ProcedureConfig{}),
			list: func() ([]syncItem, error) {
				ps, err := e.Store.ListProcedures()
				if err != nil {
					return nil, err
				}
				out := make([]syncItem, len(ps))
				for i, p := range ps {
					out[i] = metaItem(p.Id, p.Name, p.Description, p.Tags, p.Config)
				}
				return out, nil
			},
			create: func(item syncItem) error {
				p := &domain.Procedure{Meta: domain.Meta{Name: item.Name, Description: item.Description, Tags: item.Tags}}
				fromMap(item.Config, &p.Config)
				return e.Store.CreateProcedure(p)
			},
			update: func(id string, item syncItem) error {
				p, err := e.Store.GetProcedureByName(item.Name)
				if err != nil {
					return err
				}
				p.Description, p.Tags = item.Description, item.Tags
				fromMap(item.Config, &p.Config)
				return e.Store.UpdateProcedure(p)
			},
			delete: func(id string) error { return e.Store.DeleteProcedure(id) },
		},
	}
}

// syncPermissions replaces a UserGroup's normalized Permission rows to match
// its declarative Permissions list (spec §4.8 stage 2).
func (e *Engine) syncPermissions(g *domain.UserGroup) error {
	_ = e.Store.DeletePermissionsForUserGroup(g.Id)
	for _, binding := range g.Permissions {
		if err := e.Store.PutPermission(&domain.Permission{
			UserGroupId: g.Id,
			Target:      binding.Target,
			Level:       binding.Level,
		}); err != nil {
			return err
		}
	}
	return nil
}
