package kaiten_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/kaiten"
)

var _ = Describe("Client", func() {
	var (
		server *ghttp.Server
		client *kaiten.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		client = kaiten.NewClient(server.URL()+"/api/latest/", "secret-token", 5*time.Second, nil)
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Spaces", func() {
		It("sends the bearer token and decodes the list", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/latest/spaces"),
					ghttp.VerifyHeaderKV("Authorization", "Bearer secret-token"),
					ghttp.RespondWith(http.StatusOK, `[{"id":1,"title":"Clients","created":"2024-01-01T10:00:00Z","updated":"2024-02-01T10:00:00Z"}]`),
				),
			)

			spaces, err := client.Spaces(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(spaces).To(HaveLen(1))
			Expect(spaces[0].ID).To(Equal(int64(1)))
			Expect(spaces[0].Title).To(Equal("Clients"))
		})
	})

	Describe("Boards", func() {
		It("requests the boards of the space", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/latest/spaces/7/boards"),
					ghttp.RespondWith(http.StatusOK, `[{"id":70,"title":"Support"},{"id":71,"title":"Dev"}]`),
				),
			)

			boards, err := client.Boards(ctx, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(boards).To(HaveLen(2))
			Expect(boards[1].Title).To(Equal("Dev"))
		})
	})

	Describe("Cards", func() {
		It("asks for live cards only", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/latest/cards", "board_id=70&condition=1"),
					ghttp.RespondWith(http.StatusOK, `[
						{"id":101,"title":"Fix login","board_id":70,"column_id":3,"state":3,"time_spent_sum":60,"tags":[{"id":5,"name":"bug"}]},
						{"id":102,"title":"New report","board_id":70,"column_id":2,"state":2}
					]`),
				),
			)

			cards, err := client.Cards(ctx, 70)
			Expect(err).NotTo(HaveOccurred())
			Expect(cards).To(HaveLen(2))
			Expect(cards[0].State).To(Equal(domain.CardStateDone))
			Expect(cards[0].TimeSpentSum).To(Equal(60))
			Expect(cards[0].TagNames()).To(Equal([]string{"bug"}))
			Expect(cards[0].Eligible()).To(BeTrue())
			Expect(cards[1].Eligible()).To(BeFalse())
		})
	})

	Describe("Card", func() {
		It("tolerates a null description", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/latest/cards/101"),
					ghttp.RespondWith(http.StatusOK, `{"id":101,"title":"Fix login","state":3,"description":null}`),
				),
			)

			card, err := client.Card(ctx, 101)
			Expect(err).NotTo(HaveOccurred())
			Expect(card.Description).To(BeEmpty())
		})
	})

	Describe("SetCondition", func() {
		It("patches condition 2 to archive", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPatch, "/api/latest/cards/201"),
					ghttp.VerifyJSON(`{"condition":2}`),
					ghttp.RespondWith(http.StatusOK, `{"id":201}`),
				),
			)

			Expect(client.ArchiveCard(ctx, 201)).To(Succeed())
		})

		It("patches condition 1 to unarchive", func() {
			server.AppendHandlers(
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPatch, "/api/latest/cards/201"),
					ghttp.VerifyJSON(`{"condition":1}`),
					ghttp.RespondWith(http.StatusOK, `{"id":201}`),
				),
			)

			Expect(client.UnarchiveCard(ctx, 201)).To(Succeed())
		})
	})

	Describe("errors", func() {
		It("returns a rate limited APIError on 429", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusTooManyRequests, "slow down"))

			err := client.ArchiveCard(ctx, 1)
			Expect(err).To(HaveOccurred())
			Expect(kaiten.IsRateLimited(err)).To(BeTrue())

			var apiErr *kaiten.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Body).To(Equal("slow down"))
		})

		It("recognises not found", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"message":"not found"}`))

			_, err := client.Board(ctx, 999)
			Expect(kaiten.IsNotFound(err)).To(BeTrue())
			Expect(kaiten.IsRateLimited(err)).To(BeFalse())
		})

		It("refuses to call the API without a token", func() {
			anonymous := kaiten.NewClient(server.URL(), "", time.Second, nil)

			_, err := anonymous.Spaces(ctx)
			Expect(err).To(MatchError(kaiten.ErrNoToken))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})
})
