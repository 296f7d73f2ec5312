package common

// AppName is used as the keyring service name and the log prefix.
const AppName = "weeklog"

// KeyringUser is the keyring account under which the identity token is kept.
const KeyringUser = "identity-token"
