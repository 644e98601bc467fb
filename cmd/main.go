package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/celerway/gaugeboard/bridge"
	"github.com/celerway/gaugeboard/log"
	"github.com/joho/godotenv"
)

func setLoglevel(level string) log.LogLevel {
	if err := log.SetLevelFromString(level); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
	log.Debugf("Log level set to %s", log.Default().Level())
	return log.Default().Level()
}

func setOptionStr(paramPtr *string, defaultValue, name, env string, mandatory bool) string {
	var ret string
	if *paramPtr == "" {
		ret = os.Getenv(env)
	} else {
		ret = *paramPtr
	}
	if ret == "" {
		ret = defaultValue
	}
	if ret == "" && mandatory {
		log.Fatalf("Mandatory option %s not given in ENV{%s} or by flag", name, env)
	}
	if strings.Contains(strings.ToLower(name), "password") {
		log.Debugf("Option '%s' set", name)
	} else {
		log.Debugf("Option '%s' set to '%s'", name, ret)
	}
	return ret
}

func setOptionInt(paramPtr *int, defaultValue int, name, env string) int {
	var ret int
	var err error
	if *paramPtr == 0 {
		val, ok := os.LookupEnv(env)
		if ok {
			ret, err = strconv.Atoi(val)
			if err != nil {
				log.Fatalf("Could not make sense of ENV{%s}: %s", env, os.Getenv(env))
			}
		}
	} else {
		ret = *paramPtr
	}
	if ret == 0 {
		ret = defaultValue
	}
	log.Debugf("Option '%s' set to %d", name, ret)
	return ret
}

func setOptionBool(paramPtr *bool, defaultValue bool, name, env string) bool {
	var ret bool
	if !*paramPtr {
		val, ok := os.LookupEnv(env)
		if ok && strings.ToUpper(val) == "TRUE" {
			ret = true
		}
	} else {
		ret = *paramPtr
	}
	if !ret {
		ret = defaultValue
	}
	log.Debugf("Option '%s' is set to '%v'", name, ret)
	return ret
}

func main() {
	err := godotenv.Load()
	log.Info("Gaugeboard starting up.")
	if err != nil {
		log.Infof("Error loading .env file, assuming production: %s", err.Error())
	}

	logLevelPtr := flag.String("loglevel", "", "Log level (trace|debug|info|warn|error)")
	caRootCertFilePtr := flag.String("ca", "", "Path to root CA certificate (pubkey)")
	caClientCertFilePtr := flag.String("client-cert", "", "Path to client cert (pubkey)")
	caClientKeyFilePtr := flag.String("client-key", "", "Path to client key (privkey)")
	noTlsPtr := flag.Bool("mqtt-no-tls", false, "Disable TLS")
	mqttBrokerPtr := flag.String("mqtt-broker", "", "MQTT broker host")
	mqttPortPtr := flag.Int("mqtt-port", 0, "MQTT port to use")
	mqttClientIdPtr := flag.String("mqtt-client-id", "", "MQTT client id (generated if empty)")
	mqttUserPtr := flag.String("mqtt-user", "", "MQTT user name")
	mqttPasswordPtr := flag.String("mqtt-password", "", "MQTT password")
	mqttTopicPtr := flag.String("mqtt-topic", "", "Subscribe to this filter instead of the gauge topics")
	gaugeFilePtr := flag.String("gauges", "", "Path to the gauge layout (YAML)")
	healthPortPtr := flag.Int("health-port", 0, "Port for /healthz, /metrics and the chart API")
	kafkaBrokerPtr := flag.String("kafka-broker", "", "Kafka broker for reading export (disabled if empty)")
	kafkaPortPtr := flag.Int("kafka-port", 0, "Kafka port")
	kafkaTopicPtr := flag.String("kafka-topic", "", "Kafka topic for readings")
	flag.Parse()

	logLevel := setLoglevel(setOptionStr(logLevelPtr, "info", "log level", "LOG_LEVEL", false))

	tls := !setOptionBool(noTlsPtr, false, "no TLS", "MQTT_NO_TLS") // Notice the logical flip.
	var caRootCertFile, caClientCertFile, caClientKeyFile string
	if tls {
		caRootCertFile = setOptionStr(caRootCertFilePtr, "", "Root CA Cert", "ROOT_CA", true)
		caClientCertFile = setOptionStr(caClientCertFilePtr, "", "Client TLS Cert", "CLIENT_CERT", true)
		caClientKeyFile = setOptionStr(caClientKeyFilePtr, "", "Client TLS key", "CLIENT_KEY", true)
	}
	defaultMqttPort := 1883
	if tls {
		defaultMqttPort = 8883
	}
	kafkaBroker := setOptionStr(kafkaBrokerPtr, "", "kafka broker", "KAFKA_BROKER", false)

	runConfig := bridge.Params{
		MqttBroker:         setOptionStr(mqttBrokerPtr, "", "mqtt broker", "MQTT_BROKER", true),
		MqttPort:           setOptionInt(mqttPortPtr, defaultMqttPort, "mqtt port", "MQTT_PORT"),
		MqttTls:            tls,
		TlsRootCrtFile:     caRootCertFile,
		MqttClientCertFile: caClientCertFile,
		MqttClientKeyFile:  caClientKeyFile,
		MqttClientId:       setOptionStr(mqttClientIdPtr, "", "mqtt client id", "MQTT_CLIENT_ID", false),
		MqttUser:           setOptionStr(mqttUserPtr, "", "mqtt user", "MQTT_USER", false),
		MqttPassword:       setOptionStr(mqttPasswordPtr, "", "mqtt password", "MQTT_PASSWORD", false),
		MqttTopic:          setOptionStr(mqttTopicPtr, "", "mqtt topic", "MQTT_TOPIC", false),
		GaugeFile:          setOptionStr(gaugeFilePtr, "gauges.yaml", "gauge file", "GAUGE_FILE", true),
		HealthPort:         setOptionInt(healthPortPtr, 8080, "health port", "HEALTH_PORT"),
		KafkaBroker:        kafkaBroker,
		LogLevel:           logLevel,
		KafkaInterval:      time.Second,
		KafkaRetryInterval: 10 * time.Second,
		KafkaTestTopic:     "test",
	}
	if kafkaBroker != "" {
		runConfig.KafkaPort = setOptionInt(kafkaPortPtr, 9092, "kafka port", "KAFKA_PORT")
		runConfig.KafkaTopic = setOptionStr(kafkaTopicPtr, "gauges", "kafka topic", "KAFKA_TOPIC", false)
	}
	log.Debug("Starting bridge")
	if err := bridge.Run(runConfig); err != nil {
		log.Fatalf("Bridge failed: %s", err)
	}
}
