package client

import (
	"fmt"

	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/ValentinKolb/dBlob/rpc/network"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// decodeResponse turns the raw engine outcome into the response message. It
// checks the transport error code, deserializes the payload, surfaces remote
// errors and verifies that the response type matches the request.
func (rs *remoteStore) decodeResponse(req *common.Message, resp network.ResponseInfo) (*common.Message, error) {
	switch resp.Err {
	case network.NoError:
	case network.ConnectionUnavailable:
		return nil, fmt.Errorf("no connection available for %s", resp.Request.Endpoint)
	case network.NetworkError:
		return nil, fmt.Errorf("network error talking to %s", resp.Request.Endpoint)
	default:
		return nil, fmt.Errorf("unknown transport error code: %d", resp.Err)
	}

	respMsg := &common.Message{}
	if err := rs.serializer.Deserialize(resp.Response, respMsg); err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %v", err)
	}

	// check if the server returned an error
	if respMsg.MsgType == common.MsgTError || respMsg.Err != "" {
		return nil, fmt.Errorf("remote error: %s", respMsg.Err)
	}

	// check that the response answers the request we sent
	if respMsg.MsgType != req.MsgType {
		return nil, fmt.Errorf("unexpected response type: got %s, want %s", respMsg.MsgType, req.MsgType)
	}

	return respMsg, nil
}
