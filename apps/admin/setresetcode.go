package main

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/setting"
)

// setResetCode stores the operator reset code that gates locker resets.
func (cli *commandLine) setResetCode(code string) error {
	_, err := cli.settingRepo.UpsertSetting(context.Background(), setting.Setting{
		Key:   setting.KeyResetCode,
		Value: core.CleanString(code),
	})
	return err
}
