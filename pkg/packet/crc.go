// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package packet

import (
	"bytes"
	"encoding/binary"

	"github.com/dtn7/cboring"
	"github.com/howeyc/crc16"
)

// crcTable is the "standard X-25 CRC-16" table.
var crcTable = crc16.MakeTable(crc16.CCITT)

// calculateCRCBuff appends an empty CRC byte string to the buffer and returns the checksum over all its data.
func calculateCRCBuff(buff *bytes.Buffer) ([]byte, error) {
	data := make([]byte, 2)
	if err := cboring.WriteByteString(data, buff); err != nil {
		return nil, err
	}

	binary.BigEndian.PutUint16(data, crc16.Checksum(buff.Bytes(), crcTable))
	return data, nil
}
