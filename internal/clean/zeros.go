package clean

import "feeScope/internal/model"

// ReplaceZeros marks literal zeros as missing in the named columns, or in
// every column when none are named. Apply it only to sources known to report
// zero for absent data.
func ReplaceZeros(table model.Table, columns ...string) model.Table {
	targets := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		targets[c] = struct{}{}
	}

	out := table.Clone()
	for i, c := range out.Columns {
		if len(targets) > 0 {
			if _, ok := targets[c.Name]; !ok {
				continue
			}
		}
		for j, v := range c.Values {
			if v == 0 {
				out.Columns[i].Values[j] = model.Missing()
			}
		}
	}
	return out
}
