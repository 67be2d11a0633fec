package models

import (
	"fmt"
	"strings"
)

// Repository addresses one source-control repository on the hosting provider.
type Repository struct {
	Owner string
	Name  string
}

func (repo Repository) String() string {
	return repo.Owner + "/" + repo.Name
}

type InvalidRepositoryError struct {
	Value string
}

func (invalid *InvalidRepositoryError) Error() string {
	return fmt.Sprintf("invalid repository %q, expected owner/name", invalid.Value)
}

// ParseRepository reads "owner/name".
func ParseRepository(value string) (Repository, error) {
	trimmed := strings.TrimSpace(value)
	owner, name, found := strings.Cut(trimmed, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, &InvalidRepositoryError{Value: value}
	}
	return Repository{Owner: owner, Name: name}, nil
}

// ParseRepositories keeps the input order, which is the probe priority.
func ParseRepositories(values []string) ([]Repository, error) {
	repos := make([]Repository, 0, len(values))
	for _, value := range values {
		repo, err := ParseRepository(value)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
