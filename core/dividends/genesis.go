package dividends

import (
	"io"
	"io/ioutil"

	"github.com/DividendTeam/dividend-go-engine/core/types"
	tmjson "github.com/tendermint/tendermint/libs/json"
)

// ReadAppState decodes a genesis snapshot and verifies its internal
// references before it touches any store.
func ReadAppState(r io.Reader) (*types.AppState, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	appState := &types.AppState{}
	if err := tmjson.Unmarshal(data, appState); err != nil {
		return nil, err
	}

	if err := appState.Verify(); err != nil {
		return nil, err
	}

	return appState, nil
}

func WriteAppState(w io.Writer, appState types.AppState) error {
	data, err := tmjson.MarshalIndent(appState, "", "  ")
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// ImportAppState seeds a fresh engine from a snapshot.
func (e *Engine) ImportAppState(appState types.AppState) error {
	return e.state.Import(appState)
}

// ExportAppState snapshots the full engine state.
func (e *Engine) ExportAppState() types.AppState {
	return e.state.Export()
}
