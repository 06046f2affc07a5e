package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/MinhChien3980/foodease-backend/lib/myhttpclient"
	"github.com/MinhChien3980/foodease-backend/lib/mypublisher"
	"github.com/MinhChien3980/foodease-backend/lib/mypubsub"
	"github.com/MinhChien3980/foodease-backend/lib/myqueue"
	"github.com/MinhChien3980/foodease-backend/lib/mystore"
	"github.com/MinhChien3980/foodease-backend/lib/mytime"
	"github.com/MinhChien3980/foodease-backend/lib/myuuid"
	"github.com/MinhChien3980/foodease-backend/lib/myvault"
	"github.com/MinhChien3980/foodease-backend/services/notification"
	"github.com/MinhChien3980/foodease-backend/services/order"
	"github.com/MinhChien3980/foodease-backend/services/ordersaga"
	"github.com/MinhChien3980/foodease-backend/services/paymentgateway"
	"github.com/MinhChien3980/foodease-backend/services/paymentpoller"
	"github.com/MinhChien3980/foodease-backend/services/promo"
	"github.com/MinhChien3980/foodease-backend/services/wallet"
)

func main() {
	c := context.Background()

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating queue: %s", err)
	}
	defer queueCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	vault, vaultCleanup, err := myvault.New[paymentgateway.Credentials](c)
	if err != nil {
		log.Fatalf("Error creating vault: %s", err)
	}
	defer vaultCleanup()

	err = seedVaultFromEnv(c, vault)
	if err != nil {
		log.Fatalf("Error seeding vault: %s", err)
	}

	orderStore, orderStoreCleanup, err := mystore.New[order.OrderRecord](c)
	if err != nil {
		log.Fatalf("Error creating order store: %s", err)
	}
	defer orderStoreCleanup()

	txnStore, txnStoreCleanup, err := mystore.New[order.TransactionRecord](c)
	if err != nil {
		log.Fatalf("Error creating transaction store: %s", err)
	}
	defer txnStoreCleanup()

	balanceStore, balanceStoreCleanup, err := mystore.New[wallet.Balance](c)
	if err != nil {
		log.Fatalf("Error creating balance store: %s", err)
	}
	defer balanceStoreCleanup()

	adjustmentStore, adjustmentStoreCleanup, err := mystore.New[wallet.Adjustment](c)
	if err != nil {
		log.Fatalf("Error creating adjustment store: %s", err)
	}
	defer adjustmentStoreCleanup()

	redemptionStore, redemptionStoreCleanup, err := mystore.New[promo.Redemption](c)
	if err != nil {
		log.Fatalf("Error creating redemption store: %s", err)
	}
	defer redemptionStoreCleanup()

	runStore, runStoreCleanup, err := mystore.New[ordersaga.SagaRun](c)
	if err != nil {
		log.Fatalf("Error creating saga-run store: %s", err)
	}
	defer runStoreCleanup()

	notificationStore, notificationStoreCleanup, err := mystore.New[notification.Notification](c)
	if err != nil {
		log.Fatalf("Error creating notification store: %s", err)
	}
	defer notificationStoreCleanup()

	orderService := order.NewService(orderStore, txnStore, nower, uuider)
	order.NewWebService(orderService).RegisterEndpoints(c, router)

	walletService := wallet.NewService(balanceStore, adjustmentStore, nower, uuider)
	wallet.NewWebService(walletService).RegisterEndpoints(c, router)

	promoService := promo.NewService(redemptionStore, nower)

	gateways, err := createGatewayRegistry(walletService, vault)
	if err != nil {
		log.Fatalf("Error creating gateway registry: %s", err)
	}

	poller := paymentpoller.New(paymentpoller.DefaultInterval, paymentpoller.DefaultMaxDuration)

	sagaService := ordersaga.NewWebService(runStore, orderService, orderService, walletService,
		promoService, gateways, poller, publisher, nower, uuider)
	err = sagaService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering saga endpoints: %s", err)
	}

	notificationService := notification.NewWebService(notificationStore, pubsub, nower, uuider)
	err = notificationService.RegisterEndpoints(c, router)
	if err != nil {
		log.Fatalf("Error registering notification endpoints: %s", err)
	}

	startWebServerBlocking(router)
}

func createGatewayRegistry(balances paymentgateway.BalanceReader, vault myvault.VaultReader[paymentgateway.Credentials]) (*paymentgateway.Registry, error) {
	httpClient := myhttpclient.New()

	adyenEnvironment := os.Getenv("ADYEN_ENVIRONMENT")
	if adyenEnvironment == "" {
		adyenEnvironment = "test"
	}

	molliePayer, err := paymentgateway.NewMolliePayer()
	if err != nil {
		return nil, err
	}

	registry := paymentgateway.NewRegistry()
	registry.Register(paymentgateway.NewCODAdapter())
	registry.Register(paymentgateway.NewWalletAdapter(balances))
	registry.Register(paymentgateway.NewStripeAdapter(paymentgateway.NewStripePayer(), vault))
	registry.Register(paymentgateway.NewPayPalAdapter(paymentgateway.NewPayPalPayer(), vault))
	registry.Register(paymentgateway.NewRazorPayAdapter(paymentgateway.NewRazorPayer(), vault))
	registry.Register(paymentgateway.NewPayStackAdapter(httpClient, vault))
	registry.Register(paymentgateway.NewFlutterWaveAdapter(httpClient, vault))
	registry.Register(paymentgateway.NewMidtransAdapter(paymentgateway.NewMidtransPayer(), vault))
	registry.Register(paymentgateway.NewPhonePeAdapter(httpClient, vault))
	registry.Register(paymentgateway.NewAdyenAdapter(paymentgateway.NewAdyenPayer(adyenEnvironment), vault))
	registry.Register(paymentgateway.NewMollieAdapter(molliePayer, vault))

	return registry, nil
}

// seedVaultFromEnv stores each gateway's credentials under its vault key.
// Gateways without configured credentials stay registered but will refuse
// to initiate a payment.
func seedVaultFromEnv(c context.Context, vault myvault.VaultReadWriter[paymentgateway.Credentials]) error {
	gateways := []struct {
		name      paymentgateway.Name
		envPrefix string
	}{
		{paymentgateway.NameStripe, "STRIPE"},
		{paymentgateway.NamePayPal, "PAYPAL"},
		{paymentgateway.NameRazorPay, "RAZORPAY"},
		{paymentgateway.NamePayStack, "PAYSTACK"},
		{paymentgateway.NameFlutterWave, "FLUTTERWAVE"},
		{paymentgateway.NameMidtrans, "MIDTRANS"},
		{paymentgateway.NamePhonePe, "PHONEPE"},
		{paymentgateway.NameAdyen, "ADYEN"},
		{paymentgateway.NameMollie, "MOLLIE"},
	}

	for _, gateway := range gateways {
		apiKey := os.Getenv(gateway.envPrefix + "_API_KEY")
		if apiKey == "" {
			log.Printf("No credentials configured for gateway %s", gateway.name)
			continue
		}

		err := vault.Put(c, paymentgateway.CredentialsUID(gateway.name), paymentgateway.Credentials{
			APIKey:    apiKey,
			APISecret: os.Getenv(gateway.envPrefix + "_API_SECRET"),
			Extra:     os.Getenv(gateway.envPrefix + "_ACCOUNT"),
		})
		if err != nil {
			return fmt.Errorf("error storing credentials for gateway %s: %s", gateway.name, err)
		}
	}

	return nil
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
