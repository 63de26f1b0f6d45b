package exec

import (
	"regexp"
	"strings"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// matchPattern implements the BatchX pattern grammar (spec §4.6 "BatchX"):
// a leading/trailing `\` marks a regex, a bare `*` is a glob wildcard
// (translated to `.*`), anything else is matched literally (case-sensitive,
// exact).
func matchPattern(pattern, name string) bool {
	if strings.HasPrefix(pattern, `\`) && strings.HasSuffix(pattern, `\`) && len(pattern) >= 2 {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		if err != nil {
			return false
		}
		return re.MatchString(name)
	}
	if strings.Contains(pattern, "*") {
		quoted := regexp.QuoteMeta(pattern)
		globRe := "^" + strings.ReplaceAll(quoted, `\*`, `.*`) + "$"
		re, err := regexp.Compile(globRe)
		if err != nil {
			return false
		}
		return re.MatchString(name)
	}
	return pattern == name
}

// MatchDeploymentNames resolves pattern to the set of matching Deployment
// ids, for BatchDeploy/BatchPull/etc (spec §4.6 "BatchX").
func (e *Engine) MatchDeploymentNames(pattern string) ([]string, error) {
	all, err := e.Store.ListDeployments()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, d := range all {
		if matchPattern(pattern, d.Name) {
			ids = append(ids, d.Id)
		}
	}
	return ids, nil
}

// MatchStackNames resolves pattern to the set of matching Stack ids.
func (e *Engine) MatchStackNames(pattern string) ([]string, error) {
	all, err := e.Store.ListStacks()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, s := range all {
		if matchPattern(pattern, s.Name) {
			ids = append(ids, s.Id)
		}
	}
	return ids, nil
}

// BatchResult is one item's outcome within a batch operation; failures of
// one item never abort the batch (spec §4.6 "BatchX").
type BatchResult struct {
	Id     string
	Update *domain.Update
	Err    error
}

// BatchDeploy runs Deploy against every Deployment matching pattern.
func (e *Engine) BatchDeploy(pattern, operator string) ([]BatchResult, error) {
	ids, err := e.MatchDeploymentNames(pattern)
	if err != nil {
		return nil, err
	}
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		u, err := e.Deploy(id, operator)
		results = append(results, BatchResult{Id: id, Update: u, Err: err})
	}
	return results, nil
}

// BatchDeployStack runs DeployStack against every Stack matching pattern.
func (e *Engine) BatchDeployStack(pattern, operator string) ([]BatchResult, error) {
	ids, err := e.MatchStackNames(pattern)
	if err != nil {
		return nil, err
	}
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		u, err := e.DeployStack(id, operator)
		results = append(results, BatchResult{Id: id, Update: u, Err: err})
	}
	return results, nil
}

// BatchDestroyDeployment runs DestroyDeployment against every matching
// Deployment.
func (e *Engine) BatchDestroyDeployment(pattern, operator string) ([]BatchResult, error) {
	ids, err := e.MatchDeploymentNames(pattern)
	if err != nil {
		return nil, err
	}
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		u, err := e.DestroyDeployment(id, operator, "", 0)
		results = append(results, BatchResult{Id: id, Update: u, Err: err})
	}
	return results, nil
}
