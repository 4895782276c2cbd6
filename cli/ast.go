// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package cli implements the LoRa-NS console. It parses and executes CLI commands.
package cli

import (
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Counters  *CountersCmd  `  @@` //nolint
	Exit      *ExitCmd      `| @@` //nolint
	Go        *GoCmd        `| @@` //nolint
	Help      *HelpCmd      `| @@` //nolint
	Kpi       *KpiCmd       `| @@` //nolint
	LogLevel  *LogLevelCmd  `| @@` //nolint
	LossModel *LossModelCmd `| @@` //nolint
	Path      *PathCmd      `| @@` //nolint
	Paths     *PathsCmd     `| @@` //nolint
	Send      *SendCmd      `| @@` //nolint
	Time      *TimeCmd      `| @@` //nolint
	Tx        *TxCmd        `| @@` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`                                     //nolint
	Time string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever *EverFlag `| @@ )`                                   //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type PathCmd struct {
	Cmd   struct{}      `"path"` //nolint
	Add   *PathAddArgs  `( @@`   //nolint
	Reset *PathResetArg `| @@ )` //nolint
}

// noinspection GoStructTag
type PathAddArgs struct {
	Dummy       struct{}  `"add"`              //nolint
	Frequencies []float64 `( (@Int|@Float) )+` //nolint
}

// noinspection GoStructTag
type PathResetArg struct {
	Dummy struct{} `"reset"` //nolint
}

// noinspection GoStructTag
type PathsCmd struct {
	Cmd struct{} `"paths"` //nolint
}

// noinspection GoStructTag
type TxCmd struct {
	Cmd       struct{}   `"tx"`          //nolint
	Frequency float64    `(@Int|@Float)` //nolint
	Sf        SfParam    `@@`            //nolint
	Params    []*TxParam `( @@ )*`       //nolint
}

// noinspection GoStructTag
type SfParam struct {
	Dummy struct{} `"sf"` //nolint
	Val   int      `@Int` //nolint
}

// noinspection GoStructTag
type TxParam struct {
	Dist     *float64 `  "dist" (@Int|@Float)`                        //nolint
	Power    *string  `| "pw" @("-"? (Int|Float))`                    //nolint
	Duration *string  `| "dur" @((Int|Float)["us"|"ms"|"s"|"m"|"h"])` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd       struct{} `"send"`                                //nolint
	Duration  string   `@((Int|Float)["us"|"ms"|"s"|"m"|"h"])` //nolint
	Frequency *float64 `[ (@Int|@Float) ]`                     //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd struct{} `"counters"` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd      struct{} `"kpi"`           //nolint
	Save     *string  `[ @"save"`       //nolint
	Filename *string  `  [ @String ] ]` //nolint
}

// noinspection GoStructTag
type LossModelCmd struct {
	Cmd     struct{} `"lossmodel"` //nolint
	Sf      *SfParam `[ @@`        //nolint
	Model   string   `| @Ident`    //nolint
	ModelSf *SfParam `  [ @@ ] ]`  //nolint
}

// SpreadingFactor returns the sf argument, if any.
func (cmd *LossModelCmd) SpreadingFactor() *SfParam {
	if cmd.Sf != nil {
		return cmd.Sf
	}
	return cmd.ModelSf
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"loglevel"`                                                               //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"none" )]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
