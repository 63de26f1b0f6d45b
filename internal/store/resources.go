package store

import (
	"time"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	"github.com/google/uuid"
)

// --- Server ---

func (s *Store) CreateServer(v *domain.Server) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindServer), v.Id, v)
}
func (s *Store) UpdateServer(v *domain.Server) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindServer), v.Id, v)
}
func (s *Store) GetServer(id string) (*domain.Server, error) {
	return get[domain.Server](s.db, bucketFor(domain.KindServer), id)
}
func (s *Store) GetServerByName(name string) (*domain.Server, error) {
	return getByName[domain.Server](s.db, bucketFor(domain.KindServer), name, func(v *domain.Server) string { return v.Name })
}
func (s *Store) ListServers() ([]*domain.Server, error) {
	return list[domain.Server](s.db, bucketFor(domain.KindServer))
}
func (s *Store) DeleteServer(id string) error {
	return del(s.db, bucketFor(domain.KindServer), id)
}

// --- Deployment ---

func (s *Store) CreateDeployment(v *domain.Deployment) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindDeployment), v.Id, v)
}
func (s *Store) UpdateDeployment(v *domain.Deployment) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindDeployment), v.Id, v)
}
func (s *Store) GetDeployment(id string) (*domain.Deployment, error) {
	return get[domain.Deployment](s.db, bucketFor(domain.KindDeployment), id)
}
func (s *Store) GetDeploymentByName(name string) (*domain.Deployment, error) {
	return getByName[domain.Deployment](s.db, bucketFor(domain.KindDeployment), name, func(v *domain.Deployment) string { return v.Name })
}
func (s *Store) ListDeployments() ([]*domain.Deployment, error) {
	return list[domain.Deployment](s.db, bucketFor(domain.KindDeployment))
}
func (s *Store) DeleteDeployment(id string) error {
	return del(s.db, bucketFor(domain.KindDeployment), id)
}

// --- Stack ---

func (s *Store) CreateStack(v *domain.Stack) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindStack), v.Id, v)
}
func (s *Store) UpdateStack(v *domain.Stack) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindStack), v.Id, v)
}
func (s *Store) GetStack(id string) (*domain.Stack, error) {
	return get[domain.Stack](s.db, bucketFor(domain.KindStack), id)
}
func (s *Store) GetStackByName(name string) (*domain.Stack, error) {
	return getByName[domain.Stack](s.db, bucketFor(domain.KindStack), name, func(v *domain.Stack) string { return v.Name })
}
func (s *Store) ListStacks() ([]*domain.Stack, error) {
	return list[domain.Stack](s.db, bucketFor(domain.KindStack))
}
func (s *Store) DeleteStack(id string) error {
	return del(s.db, bucketFor(domain.KindStack), id)
}

// --- Build ---

func (s *Store) CreateBuild(v *domain.Build) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindBuild), v.Id, v)
}
func (s *Store) UpdateBuild(v *domain.Build) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindBuild), v.Id, v)
}
func (s *Store) GetBuild(id string) (*domain.Build, error) {
	return get[domain.Build](s.db, bucketFor(domain.KindBuild), id)
}
func (s *Store) GetBuildByName(name string) (*domain.Build, error) {
	return getByName[domain.Build](s.db, bucketFor(domain.KindBuild), name, func(v *domain.Build) string { return v.Name })
}
func (s *Store) ListBuilds() ([]*domain.Build, error) {
	return list[domain.Build](s.db, bucketFor(domain.KindBuild))
}
func (s *Store) DeleteBuild(id string) error {
	return del(s.db, bucketFor(domain.KindBuild), id)
}

// --- Repo ---

func (s *Store) CreateRepo(v *domain.Repo) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindRepo), v.Id, v)
}
func (s *Store) UpdateRepo(v *domain.Repo) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindRepo), v.Id, v)
}
func (s *Store) GetRepo(id string) (*domain.Repo, error) {
	return get[domain.Repo](s.db, bucketFor(domain.KindRepo), id)
}
func (s *Store) GetRepoByName(name string) (*domain.Repo, error) {
	return getByName[domain.Repo](s.db, bucketFor(domain.KindRepo), name, func(v *domain.Repo) string { return v.Name })
}
func (s *Store) ListRepos() ([]*domain.Repo, error) {
	return list[domain.Repo](s.db, bucketFor(domain.KindRepo))
}
func (s *Store) DeleteRepo(id string) error {
	return del(s.db, bucketFor(domain.KindRepo), id)
}

// --- Procedure ---

func (s *Store) CreateProcedure(v *domain.Procedure) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindProcedure), v.Id, v)
}
func (s *Store) UpdateProcedure(v *domain.Procedure) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindProcedure), v.Id, v)
}
func (s *Store) GetProcedure(id string) (*domain.Procedure, error) {
	return get[domain.Procedure](s.db, bucketFor(domain.KindProcedure), id)
}
func (s *Store) GetProcedureByName(name string) (*domain.Procedure, error) {
	return getByName[domain.Procedure](s.db, bucketFor(domain.KindProcedure), name, func(v *domain.Procedure) string { return v.Name })
}
func (s *Store) ListProcedures() ([]*domain.Procedure, error) {
	return list[domain.Procedure](s.db, bucketFor(domain.KindProcedure))
}
func (s *Store) DeleteProcedure(id string) error {
	return del(s.db, bucketFor(domain.KindProcedure), id)
}

// --- Action ---

func (s *Store) CreateAction(v *domain.Action) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindAction), v.Id, v)
}
func (s *Store) UpdateAction(v *domain.Action) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindAction), v.Id, v)
}
func (s *Store) GetAction(id string) (*domain.Action, error) {
	return get[domain.Action](s.db, bucketFor(domain.KindAction), id)
}
func (s *Store) GetActionByName(name string) (*domain.Action, error) {
	return getByName[domain.Action](s.db, bucketFor(domain.KindAction), name, func(v *domain.Action) string { return v.Name })
}
func (s *Store) ListActions() ([]*domain.Action, error) {
	return list[domain.Action](s.db, bucketFor(domain.KindAction))
}
func (s *Store) DeleteAction(id string) error {
	return del(s.db, bucketFor(domain.KindAction), id)
}

// --- ResourceSync ---

func (s *Store) CreateResourceSync(v *domain.ResourceSync) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindResourceSync), v.Id, v)
}
func (s *Store) UpdateResourceSync(v *domain.ResourceSync) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindResourceSync), v.Id, v)
}
func (s *Store) GetResourceSync(id string) (*domain.ResourceSync, error) {
	return get[domain.ResourceSync](s.db, bucketFor(domain.KindResourceSync), id)
}
func (s *Store) GetResourceSyncByName(name string) (*domain.ResourceSync, error) {
	return getByName[domain.ResourceSync](s.db, bucketFor(domain.KindResourceSync), name, func(v *domain.ResourceSync) string { return v.Name })
}
func (s *Store) ListResourceSyncs() ([]*domain.ResourceSync, error) {
	return list[domain.ResourceSync](s.db, bucketFor(domain.KindResourceSync))
}
func (s *Store) DeleteResourceSync(id string) error {
	return del(s.db, bucketFor(domain.KindResourceSync), id)
}

// --- Builder ---

func (s *Store) CreateBuilder(v *domain.Builder) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindBuilder), v.Id, v)
}
func (s *Store) UpdateBuilder(v *domain.Builder) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindBuilder), v.Id, v)
}
func (s *Store) GetBuilder(id string) (*domain.Builder, error) {
	return get[domain.Builder](s.db, bucketFor(domain.KindBuilder), id)
}
func (s *Store) GetBuilderByName(name string) (*domain.Builder, error) {
	return getByName[domain.Builder](s.db, bucketFor(domain.KindBuilder), name, func(v *domain.Builder) string { return v.Name })
}
func (s *Store) ListBuilders() ([]*domain.Builder, error) {
	return list[domain.Builder](s.db, bucketFor(domain.KindBuilder))
}
func (s *Store) DeleteBuilder(id string) error {
	return del(s.db, bucketFor(domain.KindBuilder), id)
}

// --- Alerter ---

func (s *Store) CreateAlerter(v *domain.Alerter) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindAlerter), v.Id, v)
}
func (s *Store) UpdateAlerter(v *domain.Alerter) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindAlerter), v.Id, v)
}
func (s *Store) GetAlerter(id string) (*domain.Alerter, error) {
	return get[domain.Alerter](s.db, bucketFor(domain.KindAlerter), id)
}
func (s *Store) ListAlerters() ([]*domain.Alerter, error) {
	return list[domain.Alerter](s.db, bucketFor(domain.KindAlerter))
}
func (s *Store) DeleteAlerter(id string) error {
	return del(s.db, bucketFor(domain.KindAlerter), id)
}

// --- Variable ---

func (s *Store) CreateVariable(v *domain.Variable) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindVariable), v.Id, v)
}
func (s *Store) UpdateVariable(v *domain.Variable) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindVariable), v.Id, v)
}
func (s *Store) GetVariableByName(name string) (*domain.Variable, error) {
	return getByName[domain.Variable](s.db, bucketFor(domain.KindVariable), name, func(v *domain.Variable) string { return v.Name })
}
func (s *Store) ListVariables() ([]*domain.Variable, error) {
	return list[domain.Variable](s.db, bucketFor(domain.KindVariable))
}
func (s *Store) DeleteVariable(id string) error {
	return del(s.db, bucketFor(domain.KindVariable), id)
}

// --- UserGroup ---

func (s *Store) CreateUserGroup(v *domain.UserGroup) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindUserGroup), v.Id, v)
}
func (s *Store) UpdateUserGroup(v *domain.UserGroup) error {
	v.UpdatedAt = time.Now()
	return put(s.db, bucketFor(domain.KindUserGroup), v.Id, v)
}
func (s *Store) GetUserGroupByName(name string) (*domain.UserGroup, error) {
	return getByName[domain.UserGroup](s.db, bucketFor(domain.KindUserGroup), name, func(v *domain.UserGroup) string { return v.Name })
}
func (s *Store) ListUserGroups() ([]*domain.UserGroup, error) {
	return list[domain.UserGroup](s.db, bucketFor(domain.KindUserGroup))
}
func (s *Store) DeleteUserGroup(id string) error {
	return del(s.db, bucketFor(domain.KindUserGroup), id)
}

// --- Tag ---

func (s *Store) CreateTag(v *domain.Tag) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	return put(s.db, bucketFor(domain.KindTag), v.Id, v)
}
func (s *Store) GetTagByName(name string) (*domain.Tag, error) {
	return getByName[domain.Tag](s.db, bucketFor(domain.KindTag), name, func(v *domain.Tag) string { return v.Name })
}
func (s *Store) ListTags() ([]*domain.Tag, error) {
	return list[domain.Tag](s.db, bucketFor(domain.KindTag))
}

// --- Update ---

func (s *Store) PutUpdate(v *domain.Update) error {
	return put(s.db, bucketUpdates, v.Id, v)
}
func (s *Store) GetUpdate(id string) (*domain.Update, error) {
	return get[domain.Update](s.db, bucketUpdates, id)
}
func (s *Store) ListUpdates() ([]*domain.Update, error) {
	return list[domain.Update](s.db, bucketUpdates)
}

// --- Permission ---

func (s *Store) PutPermission(v *domain.Permission) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	return put(s.db, bucketPermissions, v.Id, v)
}
func (s *Store) ListPermissions() ([]*domain.Permission, error) {
	return list[domain.Permission](s.db, bucketPermissions)
}
func (s *Store) DeletePermission(id string) error {
	return del(s.db, bucketPermissions, id)
}

// DeletePermissionsForTarget removes every permission row naming target —
// used by the resource Delete path (spec §4.6) before the resource row
// itself is removed. Never aborts on an individual delete failure; logs and
// continues (spec §7 cleanup-never-aborts policy), returning the first
// error seen, if any, to the caller for visibility without blocking the
// remaining deletes.
func (s *Store) DeletePermissionsForTarget(target domain.Target) error {
	perms, err := s.ListPermissions()
	if err != nil {
		return komodoerr.Wrap(komodoerr.Storage, "store.DeletePermissionsForTarget", err)
	}
	var firstErr error
	for _, p := range perms {
		if p.Target == target {
			if err := s.DeletePermission(p.Id); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DeletePermissionsForUserGroup removes every permission row owned by
// groupId — used when a UserGroup's declarative Permissions list is
// replaced wholesale (spec §4.8 stage 2). Same log-and-continue policy as
// DeletePermissionsForTarget.
func (s *Store) DeletePermissionsForUserGroup(groupId string) error {
	perms, err := s.ListPermissions()
	if err != nil {
		return komodoerr.Wrap(komodoerr.Storage, "store.DeletePermissionsForUserGroup", err)
	}
	var firstErr error
	for _, p := range perms {
		if p.UserGroupId == groupId {
			if err := s.DeletePermission(p.Id); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
