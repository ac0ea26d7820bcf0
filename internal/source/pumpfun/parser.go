// Package pumpfun discovers tokens launched on pump.fun by watching the program's logs.
package pumpfun

import (
	"encoding/base64"
	"encoding/binary"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"

	"memecoin-scout/internal/solana"
)

// ProgramID is the pump.fun bonding curve program.
const ProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

const (
	createInstruction = "Program log: Instruction: Create"
	programDataPrefix = "Program data: "
)

var mintPattern = regexp.MustCompile(`mint=([1-9A-HJ-NP-Za-km-z]{32,44})`)

// Launch is one token created on pump.fun.
type Launch struct {
	Mint   string
	Name   string
	Symbol string
}

// ParseCreates returns the tokens created in one transaction's logs. Only lines inside a
// pump.fun invocation that follow a Create instruction are considered. The mint is read
// from the CreateEvent program data, or from a "mint=" log line.
func ParseCreates(logs []string) []Launch {
	var out []Launch
	inPumpFun := false
	creating := false
	seen := make(map[string]bool)

	for _, line := range logs {
		if strings.HasPrefix(line, "Program "+ProgramID+" invoke") {
			inPumpFun = true
			creating = false
			continue
		}
		if strings.HasPrefix(line, "Program "+ProgramID+" success") ||
			strings.HasPrefix(line, "Program "+ProgramID+" failed") {
			inPumpFun = false
			creating = false
			continue
		}
		if !inPumpFun {
			continue
		}

		if strings.HasPrefix(line, createInstruction) {
			creating = true
			continue
		}
		if !creating {
			continue
		}

		var launch Launch
		if strings.HasPrefix(line, programDataPrefix) {
			l, ok := decodeCreateEvent(strings.TrimPrefix(line, programDataPrefix))
			if !ok {
				continue
			}
			launch = l
		} else if m := mintPattern.FindStringSubmatch(line); m != nil {
			launch = Launch{Mint: m[1]}
		} else {
			continue
		}

		if !solana.IsValidPubkey(launch.Mint) || seen[launch.Mint] {
			continue
		}
		seen[launch.Mint] = true
		out = append(out, launch)
		creating = false
	}
	return out
}

// decodeCreateEvent reads an Anchor CreateEvent:
// discriminator (8) | name (string) | symbol (string) | uri (string) | mint (32) | ...
func decodeCreateEvent(data string) (Launch, bool) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil || len(b) < 8 {
		return Launch{}, false
	}
	offset := 8

	var fields [3]string
	for i := range fields {
		if offset+4 > len(b) {
			return Launch{}, false
		}
		n := int(binary.LittleEndian.Uint32(b[offset:]))
		offset += 4
		if n > 256 || offset+n > len(b) {
			return Launch{}, false
		}
		fields[i] = string(b[offset : offset+n])
		offset += n
	}
	if offset+32 > len(b) {
		return Launch{}, false
	}

	return Launch{
		Mint:   base58.Encode(b[offset : offset+32]),
		Name:   strings.TrimSpace(fields[0]),
		Symbol: strings.TrimSpace(fields[1]),
	}, true
}
