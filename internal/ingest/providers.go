package ingest

import (
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// fromBlockCypher handles one entry of BlockCypher's txs[] array.
// Every address listed on an output gets its own record carrying that
// output's value.
func fromBlockCypher(m map[string]any) []models.Transaction {
	ts, ok := firstTimestamp(m, "confirmed", "received")
	if !ok {
		return nil
	}

	inputs := asSlice(m["inputs"])
	outputs := asSlice(m["outputs"])
	fee, _ := asSats(m["fees"])

	parent := models.Transaction{
		Timestamp:  ts,
		From:       firstListedAddress(inputs),
		Fee:        absInt(fee),
		TxHash:     canonicalHash(asString(m["hash"])),
		NumInputs:  intOr(m["vin_sz"], len(inputs)),
		NumOutputs: intOr(m["vout_sz"], len(outputs)),
	}

	var records []models.Transaction
	for _, item := range outputs {
		out, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, ok := asSats(out["value"])
		if !ok || value < 0 {
			continue
		}
		for _, addr := range asSlice(out["addresses"]) {
			to := asString(addr)
			if to == "" {
				continue
			}
			rec := parent
			rec.To = to
			rec.Amount = value
			records = append(records, rec)
		}
	}
	return records
}

// fromEsplora handles the mempool.space / Blockstream transaction shape.
func fromEsplora(m map[string]any) []models.Transaction {
	ts, ok := timestampFrom(nested(m, "status", "block_time"))
	if !ok {
		ts, ok = firstTimestamp(m, "received_at", "firstSeen")
	}
	if !ok {
		return nil
	}

	vin := asSlice(m["vin"])
	vout := asSlice(m["vout"])
	fee, _ := asSats(m["fee"])

	from := ""
	for _, item := range vin {
		if in, ok := item.(map[string]any); ok {
			if addr := asString(nested(in, "prevout", "scriptpubkey_address")); addr != "" {
				from = addr
				break
			}
		}
	}

	parent := models.Transaction{
		Timestamp:  ts,
		From:       from,
		Fee:        absInt(fee),
		TxHash:     canonicalHash(asString(m["txid"])),
		NumInputs:  len(vin),
		NumOutputs: len(vout),
	}

	var records []models.Transaction
	for _, item := range vout {
		out, ok := item.(map[string]any)
		if !ok {
			continue
		}
		to := asString(out["scriptpubkey_address"])
		value, ok := asSats(out["value"])
		if to == "" || !ok || value < 0 {
			continue
		}
		rec := parent
		rec.To = to
		rec.Amount = value
		records = append(records, rec)
	}
	return records
}

// fromNodeWallet handles a Bitcoin Core listtransactions entry. Amounts
// are BTC and carry the wallet's direction as sign, so the magnitude is
// kept and the sign dropped.
func fromNodeWallet(m map[string]any) []models.Transaction {
	ts, ok := firstTimestamp(m, "blocktime", "time", "timereceived")
	if !ok {
		return nil
	}
	amount, ok := btcToSats(m["amount"])
	if !ok {
		return nil
	}
	fee, _ := btcToSats(m["fee"])

	return []models.Transaction{{
		Timestamp: ts,
		Amount:    absInt(amount),
		To:        asString(m["address"]),
		Fee:       absInt(fee),
		TxHash:    canonicalHash(asString(m["txid"])),
	}}
}

// fromCanonical handles records already in {timestamp, amount, from, to,
// fee, tx_hash} form. amount and fee are BTC unless the satoshi fields
// written by this service (amountSats, feeSats) are present.
func fromCanonical(m map[string]any) []models.Transaction {
	ts, ok := firstTimestamp(m, "timestamp", "time", "date")
	if !ok {
		return nil
	}

	amount, ok := asSats(m["amountSats"])
	if !ok {
		amount, ok = btcToSats(m["amount"])
	}
	if !ok || amount < 0 {
		return nil
	}

	fee, ok := asSats(m["feeSats"])
	if !ok {
		fee, _ = btcToSats(m["fee"])
	}

	hash := asString(m["tx_hash"])
	if hash == "" {
		hash = asString(m["txHash"])
	}

	return []models.Transaction{{
		Timestamp:  ts,
		Amount:     amount,
		From:       asString(m["from"]),
		To:         asString(m["to"]),
		Fee:        absInt(fee),
		TxHash:     canonicalHash(hash),
		NumInputs:  intOr(m["numInputs"], 0),
		NumOutputs: intOr(m["numOutputs"], 0),
	}}
}

func firstListedAddress(items []any) string {
	for _, item := range items {
		in, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, addr := range asSlice(in["addresses"]) {
			if s := asString(addr); s != "" {
				return s
			}
		}
	}
	return ""
}
