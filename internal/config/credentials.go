package config

import (
	stderrors "errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"songplaydw/pkg/errors"
	"songplaydw/pkg/models"
)

// KeyringService is the service name warehouse passwords are stored under.
const KeyringService = "songplaydw"

// KeyringAccount names the keyring entry for a cluster login.
func KeyringAccount(c models.Cluster) string {
	return fmt.Sprintf("%s@%s", c.DBUser, c.Host)
}

// LookupPassword returns the stored password for the cluster login, or "" when none is stored.
func LookupPassword(c models.Cluster) (string, error) {
	secret, err := keyring.Get(KeyringService, KeyringAccount(c))
	if stderrors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCredentials, "Failed to read password from the OS keyring").
			WithContext("account", KeyringAccount(c)).
			WithSuggestions("Set DWH_CLUSTER_DB_PASSWORD or cluster.db_password instead")
	}
	return secret, nil
}

// StorePassword saves the password for the cluster login in the OS keyring.
func StorePassword(c models.Cluster, password string) error {
	if c.DBUser == "" {
		return errors.MissingConfig("cluster.db_user")
	}
	if err := keyring.Set(KeyringService, KeyringAccount(c), password); err != nil {
		return errors.Wrap(err, errors.ErrCodeCredentials, "Failed to store password in the OS keyring").
			WithContext("account", KeyringAccount(c))
	}
	return nil
}

// DeletePassword removes the stored password. A missing entry is not an error.
func DeletePassword(c models.Cluster) error {
	err := keyring.Delete(KeyringService, KeyringAccount(c))
	if err == nil || stderrors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return errors.Wrap(err, errors.ErrCodeCredentials, "Failed to delete password from the OS keyring").
		WithContext("account", KeyringAccount(c))
}
