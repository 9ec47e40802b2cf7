package idutils

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	sfNode     *snowflake.Node
	sfNodeErr  error
	sfNodeOnce sync.Once
)

func getSnowflakeNode() (*snowflake.Node, error) {
	sfNodeOnce.Do(func() {
		sfNode, sfNodeErr = snowflake.NewNode(1)
	})

	return sfNode, sfNodeErr
}

// GenerateOperationID generates a time-ordered ID for a ledger operation.
func GenerateOperationID() (string, error) {
	node, err := getSnowflakeNode()
	if err != nil {
		return "", errors.Wrap(err, "cannot generate operation ID")
	}

	return node.Generate().String(), nil
}

// GenerateSessionID generates an unguessable ID for a login session.
func GenerateSessionID() string {
	return uuid.NewString()
}
