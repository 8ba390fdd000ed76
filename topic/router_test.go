/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package topic

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/acronis/go-exchkit/log"
	"github.com/acronis/go-exchkit/log/logtest"
)

type countingMessage struct {
	Message
	visited []string
}

func (m *countingMessage) VisitFields(fn func(name string, v Value) bool) error {
	return m.Message.VisitFields(func(name string, v Value) bool {
		m.visited = append(m.visited, name)
		return fn(name, v)
	})
}

type RouterTestSuite struct {
	suite.Suite
	router   *Router
	received map[string][]string
}

func TestRouter(t *testing.T) {
	suite.Run(t, &RouterTestSuite{})
}

func (s *RouterTestSuite) SetupTest() {
	var err error
	s.router, err = NewRouter(RouterOpts{})
	s.Require().NoError(err)
	s.received = make(map[string][]string)
}

func (s *RouterTestSuite) subscribe(name string, spec Spec) *Subscription {
	sub, err := s.router.Subscribe(spec, func(raw []byte) {
		s.received[name] = append(s.received[name], string(raw))
	})
	s.Require().NoError(err)
	return sub
}

func (s *RouterTestSuite) route(data string) (int, *countingMessage) {
	msg := &countingMessage{Message: JSONMessage([]byte(data))}
	n, err := s.router.Route(msg)
	s.Require().NoError(err)
	return n, msg
}

func (s *RouterTestSuite) TestDispatch() {
	s.subscribe("btcTrades", AllOf(Eq("e", "trade"), Glob("s", "BTC*")))
	s.subscribe("ethTrades", AllOf(Eq("e", "trade"), Glob("s", "ETH*")))
	s.subscribe("depth", Eq("e", "depth"))

	const btcTrade = `{"e":"trade","s":"BTCUSDT","p":"1"}`
	const ethDepth = `{"e":"depth","s":"ETHUSDT"}`
	n, _ := s.route(btcTrade)
	s.Require().Equal(1, n)
	n, _ = s.route(ethDepth)
	s.Require().Equal(1, n)
	n, _ = s.route(`{"e":"kline","s":"BTCUSDT"}`)
	s.Require().Equal(0, n)

	s.Require().Equal(map[string][]string{
		"btcTrades": {btcTrade},
		"depth":     {ethDepth},
	}, s.received)
}

func (s *RouterTestSuite) TestSeveralSubscriptionsMatch() {
	s.subscribe("all", Everything())
	s.subscribe("trades", Eq("e", "trade"))
	n, _ := s.route(`{"e":"trade"}`)
	s.Require().Equal(2, n)
	s.Require().Len(s.received, 2)
}

func (s *RouterTestSuite) TestWalkStopsWhenAllDecided() {
	s.subscribe("trades", Eq("e", "trade"))
	s.subscribe("depth", Eq("e", "depth"))

	n, msg := s.route(`{"e":"trade","s":"BTCUSDT","p":"1","q":"2"}`)
	s.Require().Equal(1, n)
	s.Require().Equal([]string{"e"}, msg.visited)

	s.subscribe("btc", Regexp("data.s", "BTC.*"))
	n, msg = s.route(`{"e":"trade","data":{"s":"BTCUSDT"},"x":"y"}`)
	s.Require().Equal(2, n)
	s.Require().Equal([]string{"e", "data.s"}, msg.visited)
}

func (s *RouterTestSuite) TestNoWalkWhenAllDecidedUpfront() {
	s.subscribe("all", Everything())
	s.subscribe("none", AnyOf())
	n, msg := s.route(`{"e":"trade"}`)
	s.Require().Equal(1, n)
	s.Require().Empty(msg.visited)
}

func (s *RouterTestSuite) TestCatchAllInsideCompositeMatchesEmptyMessage() {
	s.subscribe("all", Everything())
	s.subscribe("allOfAll", AllOf(Everything()))
	s.subscribe("anyOfAll", AnyOf(Eq("e", "trade"), Everything()))
	s.subscribe("trades", AllOf(Everything(), Eq("e", "trade")))
	n, msg := s.route(`{}`)
	s.Require().Equal(3, n)
	s.Require().Empty(msg.visited)
	s.Require().NotContains(s.received, "trades")
}

func (s *RouterTestSuite) TestUndecidedDoesNotMatch() {
	s.subscribe("missing", Eq("stream", "btcusdt@trade"))
	n, msg := s.route(`{"e":"trade","s":"BTCUSDT"}`)
	s.Require().Equal(0, n)
	s.Require().Equal([]string{"e", "s"}, msg.visited)
}

func (s *RouterTestSuite) TestTreesAreResetBetweenMessages() {
	s.subscribe("trades", Eq("e", "trade"))
	for _, data := range []string{`{"e":"depth"}`, `{"e":"trade"}`, `{"e":"depth"}`, `{"e":"trade"}`} {
		s.route(data)
	}
	s.Require().Equal([]string{`{"e":"trade"}`, `{"e":"trade"}`}, s.received["trades"])
}

func (s *RouterTestSuite) TestUnsubscribe() {
	sub := s.subscribe("trades", Eq("e", "trade"))
	s.Require().Equal(1, s.router.Len())
	s.Require().True(s.router.Unsubscribe(sub))
	s.Require().False(s.router.Unsubscribe(sub))
	s.Require().Equal(0, s.router.Len())

	n, _ := s.route(`{"e":"trade"}`)
	s.Require().Equal(0, n)
}

func (s *RouterTestSuite) TestSubscribeFromHandler() {
	_, err := s.router.Subscribe(Eq("e", "trade"), func([]byte) {
		s.subscribe("late", Everything())
	})
	s.Require().NoError(err)
	s.route(`{"e":"trade"}`)
	s.Require().Equal(2, s.router.Len())
}

func (s *RouterTestSuite) TestSubscribeErrors() {
	_, err := s.router.Subscribe(Regexp("s", "("), func([]byte) {})
	s.Require().ErrorContains(err, `subscribe s=~/(/`)
	_, err = s.router.Subscribe(Everything(), nil)
	s.Require().ErrorContains(err, "handler cannot be nil")
	s.Require().Equal(0, s.router.Len())
}

func (s *RouterTestSuite) TestMalformedMessage() {
	s.subscribe("trades", Eq("e", "trade"))
	n, err := s.router.Route(JSONMessage([]byte(`not json`)))
	s.Require().Error(err)
	s.Require().Equal(0, n)
	s.Require().Empty(s.received)
}

func TestRouterLogsSubscriptions(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	router, err := NewRouter(RouterOpts{Logger: logRecorder})
	require.NoError(t, err)

	sub, err := router.Subscribe(Eq("e", "trade"), func([]byte) {})
	require.NoError(t, err)
	router.Unsubscribe(sub)

	added, found := logRecorder.FindEntry("subscription is added")
	require.True(t, found)
	require.Equal(t, log.LevelDebug, added.Level)
	filter, found := added.StringField("filter")
	require.True(t, found)
	require.Equal(t, `e=="trade"`, filter)

	_, found = logRecorder.FindEntry("subscription is removed")
	require.True(t, found)
}
